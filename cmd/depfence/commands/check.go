package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/internal/checker"
	"github.com/Sumatoshi-tech/depfence/internal/observability"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/report"
	"github.com/Sumatoshi-tech/depfence/pkg/version"
)

// CheckCommand holds flag state for the check command.
type CheckCommand struct {
	cfgPath string
	format  string
	noColor bool
	noCache bool
}

// NewCheckCommand creates the import check command.
func NewCheckCommand() *cobra.Command {
	cc := &CheckCommand{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the import graph against declared module boundaries",
		Long: `Check scans the source roots, extracts every import, and verifies the
observed edges against the boundaries declared in depfence.toml.
Exit code 1 means violations were found, 2 means the check could not run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          cc.run,
	}

	cmd.Flags().StringVarP(&cc.cfgPath, "config", "c", "", "explicit config file path")
	cmd.Flags().StringVar(&cc.format, "format", string(report.FormatText), "output format: text, json, yaml")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&cc.noCache, "no-cache", false, "bypass the scan cache")

	return cmd
}

func (cc *CheckCommand) run(cmd *cobra.Command, _ []string) error {
	started := time.Now()

	format, err := report.ParseFormat(cc.format)
	if err != nil {
		return err
	}

	if cc.noColor {
		color.NoColor = true
	}

	providers, err := initCheckObservability(cmd)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewCheckMetrics(providers.Meter)
	if err != nil {
		return err
	}

	cfg, err := loadProjectConfig(cc.cfgPath)
	if err != nil {
		return err
	}

	renderer := report.NewRenderer(cmd.OutOrStdout(), format)

	pol, problems := policy.Compile(cfg)
	if len(problems) > 0 {
		renderErr := renderer.Validation(report.NewValidationDocument(nil, problems))
		if renderErr != nil {
			return renderErr
		}

		return fmt.Errorf("%w: %d declared-graph problems", ErrInvalidConfig, len(problems))
	}

	scan, err := runScan(cmd.Context(), cfg, pol, cc.noCache, providers.Logger)
	if err != nil {
		return err
	}

	res := checker.Check(pol, scan)

	metrics.RecordRun(cmd.Context(), observability.CheckStats{
		Files:            int64(res.Files),
		Imports:          int64(res.Imports),
		Duration:         time.Since(started),
		CacheHits:        int64(scan.Stats.CacheHits),
		CacheMisses:      int64(scan.Stats.FilesParsed),
		ViolationsByKind: violationKindCounts(res.Violations),
	})

	err = renderer.Check(res)
	if err != nil {
		return err
	}

	if !res.Passed() {
		return fmt.Errorf("%w: %d violations", ErrCheckFailed, len(res.Violations))
	}

	return nil
}

// initCheckObservability initializes telemetry for a check run. Without
// an OTLP endpoint in the environment this yields noop providers plus
// the flag-levelled stderr logger.
func initCheckObservability(cmd *cobra.Command) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.Mode = observability.ModeCLI
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.LogLevel = logLevelFromFlags(cmd)

	return observability.Init(cfg)
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
