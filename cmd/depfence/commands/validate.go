package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/report"
	"github.com/Sumatoshi-tech/depfence/internal/schema"
)

// ValidateCommand holds flag state for the validate command.
type ValidateCommand struct {
	cfgPath string
	format  string
	noColor bool
}

// NewValidateCommand creates the configuration validation command.
func NewValidateCommand() *cobra.Command {
	vc := &ValidateCommand{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate depfence.toml structure and declared graph",
		Long: `Validate checks depfence.toml in two passes: the document structure
against the embedded JSON Schema (unknown keys, wrong types), then the
declared dependency graph (duplicates, dangling edges, cycles).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          vc.run,
	}

	cmd.Flags().StringVarP(&vc.cfgPath, "config", "c", "", "explicit config file path")
	cmd.Flags().StringVar(&vc.format, "format", string(report.FormatText), "output format: text, json, yaml")
	cmd.Flags().BoolVar(&vc.noColor, "no-color", false, "disable colored output")

	return cmd
}

func (vc *ValidateCommand) run(cmd *cobra.Command, _ []string) error {
	format, err := report.ParseFormat(vc.format)
	if err != nil {
		return err
	}

	if vc.noColor {
		color.NoColor = true
	}

	cfgPath := vc.cfgPath
	if cfgPath == "" {
		cfgPath = config.Find(".")
	}

	if cfgPath == "" {
		return ErrNoConfigFile
	}

	issues, err := schema.ValidateFile(cfgPath)
	if err != nil {
		// Unreadable or unparseable input is itself a config finding.
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var problems []policy.Problem

	cfg, loadErr := config.Load(cfgPath)
	if loadErr == nil {
		_, problems = policy.Compile(cfg)
	} else if len(issues) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, loadErr)
	}

	doc := report.NewValidationDocument(issues, problems)

	renderer := report.NewRenderer(cmd.OutOrStdout(), format)

	err = renderer.Validation(doc)
	if err != nil {
		return err
	}

	if !doc.Valid {
		return fmt.Errorf("%w: %d findings", ErrInvalidConfig, len(issues)+len(problems))
	}

	return nil
}
