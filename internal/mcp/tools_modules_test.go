package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestHandleModules_ListsDeclaredBoundaries(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"go.mod": goModDemo,
		"depfence.toml": `source_roots = ["."]

[[modules]]
path = "internal/core"
strict = true

[[modules]]
path = "internal/api"
depends_on = [{ path = "internal/core" }]
`,
		"internal/core/core.go": "package core\n",
		"internal/api/api.go":   "package api\n",
	})

	srv := testServer()

	result, output, err := srv.handleModules(context.Background(), &mcpsdk.CallToolRequest{}, ModulesInput{
		Path: dir,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	doc, ok := output.Data.(ModulesDocument)
	require.True(t, ok)
	require.Len(t, doc.Modules, 2)

	assert.Equal(t, "internal/core", doc.Modules[0].Path)
	assert.True(t, doc.Modules[0].Strict)
	assert.Empty(t, doc.Modules[0].DependsOn)

	assert.Equal(t, "internal/api", doc.Modules[1].Path)
	assert.False(t, doc.Modules[1].Strict)
	assert.Equal(t, []string{"internal/core"}, doc.Modules[1].DependsOn)
}

func TestHandleModules_ExternalEdgesSurface(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"go.mod": goModDemo,
		"depfence.toml": `source_roots = ["."]

[external]
exclude = ["github.com/google/**"]

[[modules]]
path = "internal/api"
depends_on = [{ path = "github.com/google/uuid" }]
`,
		"internal/api/api.go": "package api\n",
	})

	srv := testServer()

	result, output, err := srv.handleModules(context.Background(), &mcpsdk.CallToolRequest{}, ModulesInput{
		Path: dir,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	doc, ok := output.Data.(ModulesDocument)
	require.True(t, ok)
	require.Len(t, doc.Modules, 1)
	assert.Equal(t, []string{"github.com/google/uuid"}, doc.Modules[0].External)
}

func TestHandleModules_DeclaredGraphProblems(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"go.mod":        goModDemo,
		"depfence.toml": "[[modules]]\npath = \"internal/api\"\ndepends_on = [{ path = \"internal/ghost\" }]\n",
		"internal/api/api.go": "package api\n",
	})

	srv := testServer()

	result, _, err := srv.handleModules(context.Background(), &mcpsdk.CallToolRequest{}, ModulesInput{
		Path: dir,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "dangling-edge")
}

func TestHandleModules_MissingConfig(t *testing.T) {
	t.Parallel()

	srv := testServer()

	result, _, err := srv.handleModules(context.Background(), &mcpsdk.CallToolRequest{}, ModulesInput{
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no depfence.toml")
}
