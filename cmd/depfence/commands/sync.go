package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/syncer"
)

// SyncCommand holds flag state for the sync command.
type SyncCommand struct {
	cfgPath string
	dryRun  bool
	prune   bool
	noCache bool
}

// NewSyncCommand creates the config reconciliation command.
func NewSyncCommand() *cobra.Command {
	sc := &SyncCommand{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile declared edges with observed imports",
		Long: `Sync scans the tree and adds the module edges it observes but the
config does not declare. With --prune it also drops declared edges that
are never observed. --dry-run prints the config diff instead of writing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          sc.run,
	}

	cmd.Flags().StringVarP(&sc.cfgPath, "config", "c", "", "explicit config file path")
	cmd.Flags().BoolVar(&sc.dryRun, "dry-run", false, "print the diff without writing")
	cmd.Flags().BoolVar(&sc.prune, "prune", false, "remove declared edges that are never observed")
	cmd.Flags().BoolVar(&sc.noCache, "no-cache", false, "bypass the scan cache")

	return cmd
}

func (sc *SyncCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadProjectConfig(sc.cfgPath)
	if err != nil {
		return err
	}

	pol, problems := policy.Compile(cfg)
	if len(problems) > 0 {
		return fmt.Errorf("%w: %d declared-graph problems (run 'depfence validate')", ErrInvalidConfig, len(problems))
	}

	scan, scanErr := runScan(cmd.Context(), cfg, pol, sc.noCache, loggerFromFlags(cmd))
	if scanErr != nil {
		return scanErr
	}

	plan := syncer.Build(pol, scan, syncer.Options{Prune: sc.prune})
	if plan.Empty() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is in sync\n", cfg.File)

		return nil
	}

	after, renderErr := syncer.Render(syncer.Apply(cfg, plan))
	if renderErr != nil {
		return renderErr
	}

	if sc.dryRun {
		before, readErr := os.ReadFile(cfg.File)
		if readErr != nil {
			return fmt.Errorf("read config: %w", readErr)
		}

		fmt.Fprint(cmd.OutOrStdout(), syncer.Diff(string(before), string(after)))

		return nil
	}

	writeErr := syncer.Write(cfg.File, after)
	if writeErr != nil {
		return writeErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "updated %s: %d edges added, %d removed\n",
		cfg.File, len(plan.Add), len(plan.Remove))

	return nil
}
