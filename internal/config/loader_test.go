package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/depfence/internal/config"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFrom_NoFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.LoadFrom("", dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.File)
	assert.Equal(t, dir, cfg.Dir)
	assert.Empty(t, cfg.Exclude)
	assert.Equal(t, []string{"."}, cfg.SourceRoots)
	assert.Equal(t, config.DefaultExact, cfg.Exact)
	assert.Equal(t, config.DefaultForbidCircularDependencies, cfg.ForbidCircularDependencies)
	assert.Equal(t, config.DefaultIgnoreTypeCheckingImports, cfg.IgnoreTypeCheckingImports)
	assert.Empty(t, cfg.Modules)
	assert.Empty(t, cfg.External.Exclude)
	assert.Equal(t, config.DefaultScanWorkers, cfg.Scan.Workers)
	assert.Equal(t, config.DefaultScanMaxFileSize, cfg.Scan.MaxFileSize)
	assert.Equal(t, config.DefaultScanCache, cfg.Scan.Cache)
}

func TestLoadFrom_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `exclude = ["**/testdata/**", "examples/**"]
source_roots = ["src"]
exact = true
forbid_circular_dependencies = true
ignore_type_checking_imports = true

[scan]
workers = 8
max_file_size = "2 MiB"
cache = false

[external]
exclude = ["golang.org/x/*"]

[[modules]]
path = "internal/core"
strict = true
depends_on = [{ path = "internal/util" }]

[[modules]]
path = "internal/util"
`
	path := writeConfig(t, dir, content)

	cfg, err := config.LoadFrom("", dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, dir, cfg.Dir)

	assert.Equal(t, []string{"**/testdata/**", "examples/**"}, cfg.Exclude)
	assert.Equal(t, []string{"src"}, cfg.SourceRoots)
	assert.True(t, cfg.Exact)
	assert.True(t, cfg.ForbidCircularDependencies)
	assert.True(t, cfg.IgnoreTypeCheckingImports)

	require.Len(t, cfg.Modules, 2)
	assert.Equal(t, "internal/core", cfg.Modules[0].Path)
	assert.True(t, cfg.Modules[0].Strict)
	require.Len(t, cfg.Modules[0].DependsOn, 1)
	assert.Equal(t, "internal/util", cfg.Modules[0].DependsOn[0].Path)
	assert.Equal(t, "internal/util", cfg.Modules[1].Path)
	assert.False(t, cfg.Modules[1].Strict)
	assert.Empty(t, cfg.Modules[1].DependsOn)

	assert.Equal(t, []string{"golang.org/x/*"}, cfg.External.Exclude)

	expectedWorkers := 8

	assert.Equal(t, expectedWorkers, cfg.Scan.Workers)
	assert.Equal(t, "2 MiB", cfg.Scan.MaxFileSize)
	assert.False(t, cfg.Scan.Cache)
}

func TestLoadFrom_UpwardSearch_FindsParentConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `[[modules]]
path = "internal/core"
`)

	nested := filepath.Join(dir, "internal", "core")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	cfg, err := config.LoadFrom("", nested)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, dir, cfg.Dir)
	require.Len(t, cfg.Modules, 1)
	assert.Equal(t, "internal/core", cfg.Modules[0].Path)
}

func TestLoadFrom_ExplicitPath_Overrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `exact = true
`)

	custom := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(custom, []byte("exact = false\n"), 0o600))

	cfg, err := config.LoadFrom(custom, dir)
	require.NoError(t, err)

	assert.False(t, cfg.Exact)
	assert.Equal(t, custom, cfg.File)
}

func TestLoadFrom_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFrom("/nonexistent/path/depfence.toml", ".")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadFrom_MalformedTOML_ReturnsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `[[modules
path = broken
`)

	cfg, err := config.LoadFrom("", dir)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadFrom_PartialConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `[[modules]]
path = "internal/core"
`)

	cfg, err := config.LoadFrom("", dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"."}, cfg.SourceRoots)
	assert.Equal(t, config.DefaultScanMaxFileSize, cfg.Scan.MaxFileSize)
	assert.Equal(t, config.DefaultScanCache, cfg.Scan.Cache)
	require.Len(t, cfg.Modules, 1)
}

func TestLoadFrom_EnvOverride_Exact(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("DEPFENCE_EXACT", "true")

	cfg, err := config.LoadFrom("", dir)
	require.NoError(t, err)

	assert.True(t, cfg.Exact)
}

func TestLoadFrom_EnvOverride_NestedKey(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("DEPFENCE_SCAN_WORKERS", "32")

	cfg, err := config.LoadFrom("", dir)
	require.NoError(t, err)

	expectedWorkers := 32

	assert.Equal(t, expectedWorkers, cfg.Scan.Workers)
}

func TestLoadFrom_InvalidConfig_ReturnsValidateError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `source_roots = []
`)

	cfg, err := config.LoadFrom("", dir)
	require.Error(t, err)
	assert.Nil(t, cfg)
	require.ErrorIs(t, err, config.ErrNoSourceRoots)
}
