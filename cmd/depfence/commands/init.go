package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
	"github.com/Sumatoshi-tech/depfence/internal/syncer"
)

// InitCommand holds flag state for the init command.
type InitCommand struct {
	force bool
}

// NewInitCommand creates the config scaffolding command.
func NewInitCommand() *cobra.Command {
	ic := &InitCommand{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold depfence.toml from the current tree",
		Long: `Init scans the working directory and writes a starter config: each
top-level package becomes a module and the imports observed between
them become declared edges.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          ic.run,
	}

	cmd.Flags().BoolVar(&ic.force, "force", false, "overwrite an existing config file")

	return cmd
}

func (ic *InitCommand) run(cmd *cobra.Command, _ []string) error {
	target := filepath.Join(".", config.FileName)

	if _, statErr := os.Stat(target); statErr == nil && !ic.force {
		return ErrConfigExists
	}

	scan, scanErr := scanner.Scan(cmd.Context(), scanner.Options{
		Dir:         ".",
		SourceRoots: []string{"."},
		Logger:      loggerFromFlags(cmd),
	})
	if scanErr != nil {
		return scanErr
	}

	cfg := syncer.Bootstrap(scan, ".", nil)

	data, renderErr := syncer.Render(cfg)
	if renderErr != nil {
		return renderErr
	}

	writeErr := syncer.Write(target, data)
	if writeErr != nil {
		return writeErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d modules\n", target, len(cfg.Modules))

	return nil
}
