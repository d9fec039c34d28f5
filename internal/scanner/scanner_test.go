package scanner_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

const goModDemo = "module example.com/demo\n\ngo 1.24\n"

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	return dir
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseOptions(dir string) scanner.Options {
	return scanner.Options{
		Dir:         dir,
		SourceRoots: []string{"."},
		Logger:      discardLogger(),
	}
}

func findFile(t *testing.T, res *scanner.Result, path string) scanner.FileImports {
	t.Helper()

	for _, fi := range res.Files {
		if fi.Path == path {
			return fi
		}
	}

	t.Fatalf("file %q not in scan result", path)

	return scanner.FileImports{}
}

func TestScanCollectsImports(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod": goModDemo,
		"internal/core/core.go": "package core\n\nimport (\n\t\"fmt\"\n\n\t\"example.com/demo/internal/util\"\n)\n",
		"internal/util/util.go": "package util\n\nimport \"strings\"\n",
		"internal/api/api.go":   "package api\n\nimport (\n\t\"example.com/demo/internal/core\"\n\t\"github.com/google/uuid\"\n)\n",
		"cmd/demo/main.go":      "package main\n\nimport \"example.com/demo/internal/api\"\n",
	})

	res, err := scanner.Scan(context.Background(), baseOptions(dir))
	require.NoError(t, err)

	assert.Equal(t, "example.com/demo", res.ModulePath)
	assert.Equal(t, 4, res.Stats.FilesParsed)
	assert.Equal(t, 0, res.Stats.CacheHits)

	paths := make([]string, 0, len(res.Files))
	for _, fi := range res.Files {
		paths = append(paths, fi.Path)
	}

	assert.Equal(t, []string{
		"cmd/demo/main.go",
		"internal/api/api.go",
		"internal/core/core.go",
		"internal/util/util.go",
	}, paths)

	core := findFile(t, res, "internal/core/core.go")
	assert.Equal(t, "internal/core", core.Package)
	assert.False(t, core.Test)
	require.Len(t, core.Imports, 2)

	assert.Equal(t, "fmt", core.Imports[0].Path)
	assert.Equal(t, scanner.ImportStdlib, core.Imports[0].Kind)
	assert.Equal(t, 4, core.Imports[0].Line)
	assert.Equal(t, 2, core.Imports[0].Column)

	assert.Equal(t, "example.com/demo/internal/util", core.Imports[1].Path)
	assert.Equal(t, scanner.ImportInternal, core.Imports[1].Kind)
	assert.Equal(t, "internal/util", core.Imports[1].Rel)
	assert.Equal(t, 6, core.Imports[1].Line)

	api := findFile(t, res, "internal/api/api.go")
	require.Len(t, api.Imports, 2)
	assert.Equal(t, scanner.ImportInternal, api.Imports[0].Kind)
	assert.Equal(t, "internal/core", api.Imports[0].Rel)
	assert.Equal(t, scanner.ImportExternal, api.Imports[1].Kind)
	assert.Equal(t, "github.com/google/uuid", api.Imports[1].Path)
	assert.Empty(t, api.Imports[1].Rel)
}

func TestScanMarksTestFiles(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                     goModDemo,
		"internal/core/core.go":      "package core\n",
		"internal/core/core_test.go": "package core_test\n\nimport \"testing\"\n",
	})

	res, err := scanner.Scan(context.Background(), baseOptions(dir))
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	testFile := findFile(t, res, "internal/core/core_test.go")
	assert.True(t, testFile.Test)
	assert.False(t, findFile(t, res, "internal/core/core.go").Test)
}

func TestScanSkipsTestFilesWhenConfigured(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                     goModDemo,
		"internal/core/core.go":      "package core\n",
		"internal/core/core_test.go": "package core_test\n\nimport \"testing\"\n",
	})

	opts := baseOptions(dir)
	opts.SkipTestFiles = true

	res, err := scanner.Scan(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "internal/core/core.go", res.Files[0].Path)
}

func TestScanAppliesExcludeGlobs(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                     goModDemo,
		"internal/core/core.go":      "package core\n",
		"internal/core/types_gen.go": "package core\n",
		"gen/gen.go":                 "package gen\n",
	})

	opts := baseOptions(dir)
	opts.Exclude = []string{"gen/**", "**/*_gen.go"}

	res, err := scanner.Scan(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "internal/core/core.go", res.Files[0].Path)
}

func TestScanSkipsVendorHiddenAndTestdata(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                goModDemo,
		"internal/core/core.go": "package core\n",
		"vendor/dep/dep.go":     "package dep\n",
		"testdata/fixture.go":   "package fixture\n",
		".hidden/hidden.go":     "package hidden\n",
		"_tools/tool.go":        "package tool\n",
		"internal/_skip.go":     "package internal\n",
	})

	res, err := scanner.Scan(context.Background(), baseOptions(dir))
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "internal/core/core.go", res.Files[0].Path)
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	t.Parallel()

	big := "package big\n\n// " + strings.Repeat("x", 2048) + "\n"

	dir := writeTree(t, map[string]string{
		"go.mod":                goModDemo,
		"internal/core/core.go": "package core\n",
		"internal/core/big.go":  big,
	})

	opts := baseOptions(dir)
	opts.MaxFileSize = 512

	res, err := scanner.Scan(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "internal/core/core.go", res.Files[0].Path)
	assert.Equal(t, 1, res.Stats.SkippedLarge)
}

func TestScanSourceRootNamespace(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                    goModDemo,
		"src/internal/core/core.go": "package core\n\nimport \"example.com/demo/src/internal/util\"\n",
		"src/internal/util/util.go": "package util\n",
	})

	opts := baseOptions(dir)
	opts.SourceRoots = []string{"src"}

	res, err := scanner.Scan(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	core := findFile(t, res, "src/internal/core/core.go")
	assert.Equal(t, "internal/core", core.Package)
	require.Len(t, core.Imports, 1)
	assert.Equal(t, scanner.ImportInternal, core.Imports[0].Kind)
	assert.Equal(t, "internal/util", core.Imports[0].Rel)
}

func TestScanMissingGoMod(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"internal/core/core.go": "package core\n",
	})

	_, err := scanner.Scan(context.Background(), baseOptions(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "go.mod")
}

func TestScanGoModWithoutModulePath(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                "go 1.24\n",
		"internal/core/core.go": "package core\n",
	})

	_, err := scanner.Scan(context.Background(), baseOptions(dir))
	require.ErrorIs(t, err, scanner.ErrNoModulePath)
}

func TestScanReportsParseErrors(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":              goModDemo,
		"internal/bad/bad.go": "pkg bad\n",
	})

	_, err := scanner.Scan(context.Background(), baseOptions(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal/bad/bad.go")
}

func TestScanCanceledContext(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                goModDemo,
		"internal/core/core.go": "package core\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Scan(ctx, baseOptions(dir))
	require.ErrorIs(t, err, context.Canceled)
}

type memoryCache struct {
	mu    sync.Mutex
	store map[string]scanner.FileImports
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: map[string]scanner.FileImports{}}
}

func cacheKey(path string, size, mtime int64) string {
	return fmt.Sprintf("%s|%d|%d", path, size, mtime)
}

func (c *memoryCache) Get(path string, size, mtime int64) (*scanner.FileImports, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fi, ok := c.store[cacheKey(path, size, mtime)]
	if !ok {
		return nil, false
	}

	return &fi, true
}

func (c *memoryCache) Put(path string, size, mtime int64, fi *scanner.FileImports) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[cacheKey(path, size, mtime)] = *fi
}

func TestScanSecondRunHitsCache(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"go.mod":                goModDemo,
		"internal/core/core.go": "package core\n\nimport \"fmt\"\n",
		"internal/util/util.go": "package util\n",
	})

	cache := newMemoryCache()

	opts := baseOptions(dir)
	opts.Cache = cache

	first, err := scanner.Scan(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.FilesParsed)
	assert.Equal(t, 0, first.Stats.CacheHits)

	second, err := scanner.Scan(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stats.FilesParsed)
	assert.Equal(t, 2, second.Stats.CacheHits)
	assert.Equal(t, first.Files, second.Files)
}
