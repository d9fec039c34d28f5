package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const goModDemo = "module example.com/demo\n\ngo 1.24\n"

const configDemo = `source_roots = ["."]

[[modules]]
path = "internal/core"

[[modules]]
path = "internal/api"
depends_on = [{ path = "internal/core" }]
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer() *Server {
	return NewServer(ServerDeps{Logger: discardLogger()})
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	return dir
}

func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestHandleCheck_CleanProject(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"go.mod":                goModDemo,
		"depfence.toml":         configDemo,
		"internal/core/core.go": "package core\n\nimport \"strings\"\n",
		"internal/api/api.go":   "package api\n\nimport \"example.com/demo/internal/core\"\n",
	})

	srv := testServer()

	result, output, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{
		Path:    dir,
		NoCache: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"passed": true`)
	assert.NotNil(t, output.Data)
}

func TestHandleCheck_ReportsViolations(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"go.mod":                goModDemo,
		"depfence.toml":         configDemo,
		"internal/core/core.go": "package core\n\nimport \"example.com/demo/internal/api\"\n",
		"internal/api/api.go":   "package api\n",
	})

	srv := testServer()

	result, _, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{
		Path:    dir,
		NoCache: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	// Violations are a successful check result, not a tool error.
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, `"passed": false`)
	assert.Contains(t, text, "internal/core/core.go")
}

func TestHandleCheck_EmptyPath(t *testing.T) {
	t.Parallel()

	srv := testServer()

	result, _, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "path parameter is required")
}

func TestHandleCheck_RelativePath(t *testing.T) {
	t.Parallel()

	srv := testServer()

	result, _, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{
		Path: "some/relative/dir",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "absolute path")
}

func TestHandleCheck_MissingConfig(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"go.mod": goModDemo,
	})

	srv := testServer()

	result, _, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{
		Path:    dir,
		NoCache: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no depfence.toml")
}

func TestHandleCheck_DeclaredGraphProblems(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"go.mod":        goModDemo,
		"depfence.toml": "source_roots = [\".\"]\n\n[[modules]]\npath = \"internal/api\"\ndepends_on = [{ path = \"internal/ghost\" }]\n",
		"internal/api/api.go": "package api\n",
	})

	srv := testServer()

	result, _, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{
		Path:    dir,
		NoCache: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "dangling-edge")
}

func TestHandleCheck_CacheRoundTrip(t *testing.T) {
	cacheRoot := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheRoot)

	dir := writeProject(t, map[string]string{
		"go.mod":                goModDemo,
		"depfence.toml":         configDemo,
		"internal/core/core.go": "package core\n",
		"internal/api/api.go":   "package api\n\nimport \"example.com/demo/internal/core\"\n",
	})

	srv := testServer()

	first, _, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{Path: dir})
	require.NoError(t, err)
	assert.False(t, first.IsError)

	entries, err := os.ReadDir(filepath.Join(cacheRoot, "depfence"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	second, _, err := srv.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, CheckInput{Path: dir})
	require.NoError(t, err)
	assert.False(t, second.IsError)
	assert.Contains(t, resultText(t, second), `"passed": true`)
}
