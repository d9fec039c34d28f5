package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/depfence/internal/depgraph"
	"github.com/Sumatoshi-tech/depfence/internal/report"
)

func demoGraph() *depgraph.Graph {
	g := depgraph.New()
	g.AddEdge("internal/api", "internal/core")
	g.AddEdge("internal/api", "internal/util")
	g.AddEdge("internal/core", "internal/util")

	return g
}

func TestNewGraphDocument(t *testing.T) {
	t.Parallel()

	doc := report.NewGraphDocument("declared", demoGraph())

	assert.Equal(t, "declared", doc.Name)
	assert.Equal(t, []string{"internal/api", "internal/core", "internal/util"}, doc.Nodes)
	assert.Equal(t, []report.GraphEdge{
		{From: "internal/api", To: "internal/core"},
		{From: "internal/api", To: "internal/util"},
		{From: "internal/core", To: "internal/util"},
	}, doc.Edges)
}

func TestNewGraphDocumentEmpty(t *testing.T) {
	t.Parallel()

	doc := report.NewGraphDocument("declared", depgraph.New())

	assert.Empty(t, doc.Nodes)
	assert.Empty(t, doc.Edges)
	assert.NotNil(t, doc.Edges)
}

func TestWriteGraphJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.WriteGraphJSON(&buf, report.NewGraphDocument("declared", demoGraph())))

	var decoded report.GraphDocument

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "declared", decoded.Name)
	assert.Len(t, decoded.Nodes, 3)
	assert.Len(t, decoded.Edges, 3)
}

func TestWriteGraphJSONEmptyEdges(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	g.AddNode("internal/api")

	var buf bytes.Buffer

	require.NoError(t, report.WriteGraphJSON(&buf, report.NewGraphDocument("declared", g)))
	assert.Contains(t, buf.String(), `"edges": []`)
}

func TestWriteGraphHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.WriteGraphHTML(&buf, report.NewGraphDocument("declared", demoGraph())))

	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "depfence: declared")
	assert.Contains(t, out, "3 modules, 3 edges")
	assert.Contains(t, out, "internal/api")
	assert.Contains(t, out, "echarts")
}
