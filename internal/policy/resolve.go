package policy

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// NormalizePath canonicalizes a declared module path: surrounding space
// trimmed, dot-separated input converted to slash form, redundant
// separators collapsed. Paths that already contain a slash keep their
// dots (external package names stay intact).
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}

	if !strings.Contains(p, "/") {
		p = strings.ReplaceAll(p, ".", "/")
	}

	p = strings.Trim(path.Clean(p), "/")
	if p == "." {
		return ""
	}

	return p
}

// ResolveModule maps a package path to its owning module: the longest
// declared module path that is a prefix of pkg on a segment boundary.
func (p *Policy) ResolveModule(pkg string) (*Module, bool) {
	for current := pkg; current != ""; current = parentPath(current) {
		if mod, ok := p.byPath[current]; ok {
			return mod, true
		}
	}

	return nil, false
}

// IsExternalExcluded reports whether the import path matches one of the
// [external] exclusion patterns. Patterns use doublestar glob syntax:
// `*` stays inside one path segment, `**` crosses segments, and a
// pattern without wildcards matches exactly.
func (p *Policy) IsExternalExcluded(importPath string) bool {
	for _, pattern := range p.external {
		matched, matchErr := doublestar.Match(pattern, importPath)
		if matchErr == nil && matched {
			return true
		}
	}

	return false
}

func parentPath(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}

	return p[:idx]
}
