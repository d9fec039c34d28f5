package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/depfence/internal/depgraph"
	"github.com/Sumatoshi-tech/depfence/internal/plotpage"
)

const (
	graphChartHeight = "720px"
	graphRepulsion   = 400

	nodeBaseSize   = 12
	nodeSizePerDeg = 4
	nodeMaxSize    = 42
)

// GraphEdge is one directed edge in a graph document.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphDocument is the machine shape of a dependency graph.
type GraphDocument struct {
	Name  string      `json:"name"`
	Nodes []string    `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NewGraphDocument flattens a graph into its document form, nodes and
// edges in deterministic order.
func NewGraphDocument(name string, g *depgraph.Graph) GraphDocument {
	doc := GraphDocument{
		Name:  name,
		Nodes: g.Nodes(),
		Edges: []GraphEdge{},
	}

	if doc.Nodes == nil {
		doc.Nodes = []string{}
	}

	for _, from := range doc.Nodes {
		for _, to := range g.Children(from) {
			doc.Edges = append(doc.Edges, GraphEdge{From: from, To: to})
		}
	}

	return doc
}

// WriteGraphJSON encodes the graph document as indented JSON.
func WriteGraphJSON(w io.Writer, doc GraphDocument) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode graph json: %w", err)
	}

	return nil
}

// WriteGraphHTML renders the graph as a self-contained echarts page.
func WriteGraphHTML(w io.Writer, doc GraphDocument) error {
	page := plotpage.NewPage(
		"depfence: "+doc.Name,
		fmt.Sprintf("%d modules, %d edges", len(doc.Nodes), len(doc.Edges)),
	)
	page.Add(plotpage.Section{
		Title:    "Module dependency graph",
		Subtitle: "drag to pan, scroll to zoom",
		Chart:    graphChart(doc),
	})

	return page.Render(w)
}

// graphChart builds a force-layout echarts graph, node size scaled by
// degree.
func graphChart(doc GraphDocument) *charts.Graph {
	degree := map[string]int{}
	for _, e := range doc.Edges {
		degree[e.From]++
		degree[e.To]++
	}

	nodes := make([]opts.GraphNode, 0, len(doc.Nodes))
	for _, name := range doc.Nodes {
		nodes = append(nodes, opts.GraphNode{
			Name:       name,
			Value:      float32(degree[name]),
			SymbolSize: nodeSize(degree[name]),
		})
	}

	links := make([]opts.GraphLink, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		links = append(links, opts.GraphLink{Source: e.From, Target: e.To})
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: graphChartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	graph.AddSeries("dependencies", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "force",
			Force:      &opts.GraphForce{Repulsion: graphRepulsion},
			Roam:       opts.Bool(true),
			EdgeSymbol: []string{"none", "arrow"},
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
	)

	return graph
}

func nodeSize(degree int) int {
	return min(nodeBaseSize+degree*nodeSizePerDeg, nodeMaxSize)
}
