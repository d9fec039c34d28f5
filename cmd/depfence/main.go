// Package main provides the entry point for the depfence CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/cmd/depfence/commands"
	"github.com/Sumatoshi-tech/depfence/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "depfence",
		Short: "Depfence - Module boundary enforcement for Go",
		Long: `Depfence checks the imports a Go tree actually makes against the
module boundaries declared in depfence.toml.

Commands:
  check     Check observed imports against declared boundaries
  validate  Validate the config file
  graph     Export the module dependency graph
  sync      Reconcile declared edges with observed imports
  init      Scaffold depfence.toml from the current tree
  mcp       Start the MCP stdio server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	// Add commands.
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewGraphCommand())
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "depfence %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
