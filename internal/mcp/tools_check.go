package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/depfence/internal/cache"
	"github.com/Sumatoshi-tech/depfence/internal/checker"
	"github.com/Sumatoshi-tech/depfence/internal/observability"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/report"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

// handleCheck processes depfence_check tool calls.
func (s *Server) handleCheck(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CheckInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	started := time.Now()

	err := validatePathInput(input.Path)
	if err != nil {
		return errorResult(err)
	}

	cfg, err := loadProject(input.Path, input.Config)
	if err != nil {
		return errorResult(err)
	}

	pol, problems := policy.Compile(cfg)
	if len(problems) > 0 {
		result, output, jsonErr := jsonResult(report.NewValidationDocument(nil, problems))
		if result != nil {
			result.IsError = true
		}

		return result, output, jsonErr
	}

	opts := scanner.Options{
		Dir:           cfg.Dir,
		SourceRoots:   cfg.SourceRoots,
		Exclude:       cfg.Exclude,
		Workers:       cfg.Scan.Workers,
		MaxFileSize:   cfg.MaxFileSizeBytes(),
		SkipTestFiles: pol.IgnoreTypeCheckingImports(),
		Logger:        s.logger,
	}

	var scanCache *cache.ScanCache
	if cfg.Scan.Cache && !input.NoCache {
		scanCache = cache.OpenProject(cfg.Dir, cfg.SourceRoots, s.logger)
	}

	if scanCache != nil {
		opts.Cache = scanCache
	}

	scan, err := scanner.Scan(ctx, opts)
	if err != nil {
		return errorResult(fmt.Errorf("scan project: %w", err))
	}

	if scanCache != nil {
		saveErr := scanCache.Save()
		if saveErr != nil {
			s.logger.Warn("save scan cache", "error", saveErr)
		}
	}

	res := checker.Check(pol, scan)

	s.checkMetrics.RecordRun(ctx, observability.CheckStats{
		Files:            int64(res.Files),
		Imports:          int64(res.Imports),
		Duration:         time.Since(started),
		CacheHits:        int64(scan.Stats.CacheHits),
		CacheMisses:      int64(scan.Stats.FilesParsed),
		ViolationsByKind: violationKindCounts(res.Violations),
	})

	return jsonResult(report.NewCheckDocument(res))
}

// violationKindCounts groups violations by kind for metric attributes.
func violationKindCounts(violations []checker.Violation) map[string]int64 {
	if len(violations) == 0 {
		return nil
	}

	counts := make(map[string]int64, len(violations))
	for _, v := range violations {
		counts[string(v.Kind)]++
	}

	return counts
}
