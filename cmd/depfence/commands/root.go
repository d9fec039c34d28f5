// Package commands implements CLI command handlers for depfence.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/internal/cache"
	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

// Exit codes. Findings (boundary violations, invalid configuration) exit
// with 1; everything the tool could not even attempt exits with 2.
const (
	ExitOK       = 0
	ExitFindings = 1
	ExitUsage    = 2
)

// Sentinel errors shared across commands.
var (
	// ErrCheckFailed indicates the import check found boundary violations.
	ErrCheckFailed = errors.New("boundary violations found")
	// ErrInvalidConfig indicates validation found issues in depfence.toml.
	ErrInvalidConfig = errors.New("configuration is invalid")
	// ErrNoConfigFile indicates no depfence.toml was found.
	ErrNoConfigFile = errors.New("no depfence.toml found (run 'depfence init' to create one)")
	// ErrConfigExists indicates init would overwrite an existing config.
	ErrConfigExists = errors.New("depfence.toml already exists (use --force to overwrite)")
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, ErrCheckFailed) || errors.Is(err, ErrInvalidConfig) {
		return ExitFindings
	}

	return ExitUsage
}

// loggerFromFlags builds the command logger from the persistent
// --verbose/--quiet flags. Default level is warn so reports stay the
// only output of a normal run.
func loggerFromFlags(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevelFromFlags(cmd),
	}))
}

func logLevelFromFlags(cmd *cobra.Command) slog.Level {
	if flagBool(cmd, "quiet") {
		return slog.LevelError
	}

	if flagBool(cmd, "verbose") {
		return slog.LevelDebug
	}

	return slog.LevelWarn
}

// flagBool reads a registered bool flag, tolerating commands run outside
// the root command (tests construct subcommands directly).
func flagBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return v
}

// loadProjectConfig loads depfence.toml, explicit path or upward search.
// Commands that need a declaration refuse to run on defaults alone.
func loadProjectConfig(path string) (*config.Config, error) {
	cfg, loadErr := config.Load(path)
	if loadErr != nil {
		return nil, loadErr
	}

	if cfg.File == "" {
		return nil, ErrNoConfigFile
	}

	return cfg, nil
}

// runScan scans the configured source roots, wiring up the persistent
// per-project cache unless disabled by config or flag.
func runScan(ctx context.Context, cfg *config.Config, pol *policy.Policy, noCache bool, logger *slog.Logger) (*scanner.Result, error) {
	opts := scanner.Options{
		Dir:           cfg.Dir,
		SourceRoots:   cfg.SourceRoots,
		Exclude:       cfg.Exclude,
		Workers:       cfg.Scan.Workers,
		MaxFileSize:   cfg.MaxFileSizeBytes(),
		SkipTestFiles: pol.IgnoreTypeCheckingImports(),
		Logger:        logger,
	}

	var scanCache *cache.ScanCache
	if cfg.Scan.Cache && !noCache {
		scanCache = cache.OpenProject(cfg.Dir, cfg.SourceRoots, logger)
	}

	if scanCache != nil {
		opts.Cache = scanCache
	}

	scan, scanErr := scanner.Scan(ctx, opts)
	if scanErr != nil {
		return nil, fmt.Errorf("scan project: %w", scanErr)
	}

	if scanCache != nil {
		saveErr := scanCache.Save()
		if saveErr != nil {
			logger.Warn("save scan cache", "error", saveErr)
		}
	}

	return scan, nil
}

// writeOutput writes rendered bytes to the -o target, stdout when empty.
func writeOutput(cmd *cobra.Command, outPath string, data []byte) error {
	if outPath == "" {
		_, writeErr := cmd.OutOrStdout().Write(data)
		if writeErr != nil {
			return fmt.Errorf("write output: %w", writeErr)
		}

		return nil
	}

	writeErr := os.WriteFile(outPath, data, 0o644)
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", outPath, writeErr)
	}

	return nil
}
