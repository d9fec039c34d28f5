package commands

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depfence/internal/depgraph"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/report"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

// Graph output formats.
const (
	graphFormatDOT  = "dot"
	graphFormatJSON = "json"
	graphFormatHTML = "html"
)

// dotGraphName is the digraph name in DOT output.
const dotGraphName = "depfence"

// GraphCommand holds flag state for the graph command.
type GraphCommand struct {
	cfgPath  string
	format   string
	outPath  string
	observed bool
	noCache  bool
}

// NewGraphCommand creates the graph export command.
func NewGraphCommand() *cobra.Command {
	gc := &GraphCommand{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the module dependency graph",
		Long: `Graph serializes the declared module graph, or with --observed the
edges actually found in the source tree. Formats: graphviz DOT, JSON,
or a self-contained interactive HTML page.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          gc.run,
	}

	cmd.Flags().StringVarP(&gc.cfgPath, "config", "c", "", "explicit config file path")
	cmd.Flags().StringVar(&gc.format, "format", graphFormatDOT, "output format: dot, json, html")
	cmd.Flags().StringVarP(&gc.outPath, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&gc.observed, "observed", false, "export observed edges instead of declared ones")
	cmd.Flags().BoolVar(&gc.noCache, "no-cache", false, "bypass the scan cache")

	return cmd
}

func (gc *GraphCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadProjectConfig(gc.cfgPath)
	if err != nil {
		return err
	}

	pol, problems := policy.Compile(cfg)
	if len(problems) > 0 {
		return fmt.Errorf("%w: %d declared-graph problems (run 'depfence validate')", ErrInvalidConfig, len(problems))
	}

	graph := pol.Graph()
	name := "declared"

	if gc.observed {
		scan, scanErr := runScan(cmd.Context(), cfg, pol, gc.noCache, loggerFromFlags(cmd))
		if scanErr != nil {
			return scanErr
		}

		graph = observedGraph(pol, scan)
		name = "observed"
	}

	data, renderErr := gc.render(name, graph)
	if renderErr != nil {
		return renderErr
	}

	return writeOutput(cmd, gc.outPath, data)
}

func (gc *GraphCommand) render(name string, graph *depgraph.Graph) ([]byte, error) {
	var buf bytes.Buffer

	switch gc.format {
	case graphFormatDOT:
		buf.WriteString(graph.DOT(dotGraphName))
	case graphFormatJSON:
		if err := report.WriteGraphJSON(&buf, report.NewGraphDocument(name, graph)); err != nil {
			return nil, err
		}
	case graphFormatHTML:
		if err := report.WriteGraphHTML(&buf, report.NewGraphDocument(name, graph)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", report.ErrUnknownFormat, gc.format)
	}

	return buf.Bytes(), nil
}

// observedGraph builds the module graph from the edges a scan actually
// found. Declared modules stay as nodes even when nothing touches them.
func observedGraph(pol *policy.Policy, scan *scanner.Result) *depgraph.Graph {
	graph := depgraph.New()

	for _, mod := range pol.Modules() {
		graph.AddNode(mod.Path)
	}

	for _, file := range scan.Files {
		from, owned := pol.ResolveModule(file.Package)
		if !owned {
			continue
		}

		for _, imp := range file.Imports {
			if imp.Kind != scanner.ImportInternal {
				continue
			}

			to, ok := pol.ResolveModule(imp.Rel)
			if !ok || to.Path == from.Path {
				continue
			}

			graph.AddEdge(from.Path, to.Path)
		}
	}

	return graph
}
