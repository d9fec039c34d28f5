package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/internal/mcp"
	"github.com/Sumatoshi-tech/depfence/internal/observability"
	"github.com/Sumatoshi-tech/depfence/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug           bool
		diagnosticsAddr string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes depfence boundary checking as tools that AI agents
can discover and invoke:
  - depfence_check: Check observed imports against declared module boundaries
  - depfence_validate: Validate a depfence.toml config file
  - depfence_modules: List declared modules and their allowed dependencies`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			providers, err := initMCPObservability(debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, redErr := observability.NewREDMetrics(providers.Meter)
			if redErr != nil {
				return redErr
			}

			checkMetrics, cmErr := observability.NewCheckMetrics(providers.Meter)
			if cmErr != nil {
				return cmErr
			}

			if diagnosticsAddr != "" {
				diag, diagErr := observability.NewDiagnosticsServer(diagnosticsAddr)
				if diagErr != nil {
					return diagErr
				}

				defer diag.Close()

				providers.Logger.Info("diagnostics server listening", "addr", diag.Addr())
			}

			deps := mcp.ServerDeps{
				Logger:       providers.Logger,
				Metrics:      red,
				CheckMetrics: checkMetrics,
				Tracer:       providers.Tracer,
			}

			srv := mcp.NewServer(deps)

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&diagnosticsAddr, "diagnostics-addr", "", "serve /healthz, /readyz and /metrics on this address")

	return cmd
}

func initMCPObservability(debug bool) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.Mode = observability.ModeMCP
	cfg.LogJSON = true

	if debug {
		cfg.LogLevel = slog.LevelDebug
		cfg.DebugTrace = true
	}

	return observability.Init(cfg)
}
