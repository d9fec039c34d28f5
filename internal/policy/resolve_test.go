package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "slash form", in: "internal/core", want: "internal/core"},
		{name: "dotted form", in: "internal.core", want: "internal/core"},
		{name: "surrounding space", in: "  internal/core  ", want: "internal/core"},
		{name: "trailing slash", in: "internal/core/", want: "internal/core"},
		{name: "leading dot slash", in: "./internal/core", want: "internal/core"},
		{name: "single segment", in: "util", want: "util"},
		{name: "external path keeps dots", in: "golang.org/x/mod", want: "golang.org/x/mod"},
		{name: "empty", in: "", want: ""},
		{name: "dot only", in: ".", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, policy.NormalizePath(tc.in))
		})
	}
}

func resolvePolicy(t *testing.T) *policy.Policy {
	t.Helper()

	cfg := &config.Config{
		SourceRoots: []string{"."},
		Dir:         t.TempDir(),
		Modules: []config.ModuleConfig{
			{Path: "internal/core"},
			{Path: "internal/core/deep"},
			{Path: "util"},
		},
	}

	p, problems := policy.Compile(cfg)
	require.Empty(t, problems)

	return p
}

func TestResolveModule_LongestPrefix(t *testing.T) {
	t.Parallel()

	p := resolvePolicy(t)

	mod, ok := p.ResolveModule("internal/core/deep/walker")
	require.True(t, ok)
	assert.Equal(t, "internal/core/deep", mod.Path)

	mod, ok = p.ResolveModule("internal/core/api")
	require.True(t, ok)
	assert.Equal(t, "internal/core", mod.Path)

	mod, ok = p.ResolveModule("util")
	require.True(t, ok)
	assert.Equal(t, "util", mod.Path)
}

func TestResolveModule_SegmentBoundary(t *testing.T) {
	t.Parallel()

	p := resolvePolicy(t)

	// "internal/core2" shares a string prefix with "internal/core" but
	// is a different package tree.
	_, ok := p.ResolveModule("internal/core2")
	assert.False(t, ok)
}

func TestResolveModule_Unowned(t *testing.T) {
	t.Parallel()

	p := resolvePolicy(t)

	_, ok := p.ResolveModule("cmd/app")
	assert.False(t, ok)
}

func TestIsExternalExcluded(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		SourceRoots: []string{"."},
		Dir:         t.TempDir(),
		External: config.ExternalConfig{
			Exclude: []string{"golang.org/x/*", "github.com/google/uuid", "gopkg.in/**"},
		},
	}

	p, problems := policy.Compile(cfg)
	require.Empty(t, problems)

	assert.True(t, p.IsExternalExcluded("golang.org/x/mod"))
	assert.False(t, p.IsExternalExcluded("golang.org/x/mod/modfile"))
	assert.True(t, p.IsExternalExcluded("github.com/google/uuid"))
	assert.False(t, p.IsExternalExcluded("github.com/google/uuid/v5"))
	assert.True(t, p.IsExternalExcluded("gopkg.in/yaml.v3"))
	assert.False(t, p.IsExternalExcluded("github.com/spf13/cobra"))
}
