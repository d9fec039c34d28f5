// Package checker verifies observed import edges against the compiled
// policy and produces violations.
package checker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

// Kind labels a violation category.
type Kind string

// Violation kinds.
const (
	KindUndeclared Kind = "undeclared-dependency"
	KindStrict     Kind = "strict-boundary"
	KindUnused     Kind = "unused-dependency"
	KindUnowned    Kind = "unowned-file"
)

// Violation is one finding of the import check.
type Violation struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column int    `json:"column,omitempty" yaml:"column,omitempty"`
	Import string `json:"import,omitempty" yaml:"import,omitempty"`
	From   string `json:"from,omitempty" yaml:"from,omitempty"`
	To     string `json:"to,omitempty" yaml:"to,omitempty"`
	Detail string `json:"detail" yaml:"detail"`
}

// String renders the violation in file:line:column form when a location
// is known.
func (v Violation) String() string {
	if v.File == "" {
		return v.Detail
	}

	if v.Line == 0 {
		return fmt.Sprintf("%s: %s", v.File, v.Detail)
	}

	return fmt.Sprintf("%s:%d:%d: %s", v.File, v.Line, v.Column, v.Detail)
}

// Result is the outcome of an import check.
type Result struct {
	Violations []Violation `json:"violations" yaml:"violations"`
	// Files is the number of files checked.
	Files int `json:"files" yaml:"files"`
	// Imports is the number of internal import statements examined.
	Imports int `json:"imports" yaml:"imports"`
}

// Passed reports whether the check found no violations.
func (r *Result) Passed() bool {
	return len(r.Violations) == 0
}

// edgeKey identifies one module-to-module edge.
type edgeKey struct {
	from string
	to   string
}

// Check verifies every observed internal import edge against the
// policy. External and stdlib imports are out of scope; files owned by
// no declared module are findings only in exact mode.
func Check(p *policy.Policy, scan *scanner.Result) *Result {
	res := &Result{Files: len(scan.Files)}
	observed := map[edgeKey]bool{}

	for _, file := range scan.Files {
		from, owned := p.ResolveModule(file.Package)
		if !owned {
			if p.Exact() {
				res.Violations = append(res.Violations, Violation{
					Kind:   KindUnowned,
					File:   file.Path,
					Detail: "file belongs to no declared module",
				})
			}

			continue
		}

		for _, imp := range file.Imports {
			if imp.Kind != scanner.ImportInternal {
				continue
			}

			res.Imports++

			if v, flagged := checkImport(p, from, file, imp, observed); flagged {
				res.Violations = append(res.Violations, v)
			}
		}
	}

	if p.Exact() {
		res.Violations = append(res.Violations, unusedEdges(p, observed)...)
	}

	sortViolations(res.Violations)

	return res
}

// checkImport applies the edge rules to one internal import.
func checkImport(p *policy.Policy, from *policy.Module, file scanner.FileImports, imp scanner.Import, observed map[edgeKey]bool) (Violation, bool) {
	to, owned := p.ResolveModule(imp.Rel)
	if !owned {
		// The target package is governed by no declared module.
		return Violation{}, false
	}

	if from.Path == to.Path {
		return Violation{}, false
	}

	if !p.Allowed(from.Path, to.Path) {
		return Violation{
			Kind:   KindUndeclared,
			File:   file.Path,
			Line:   imp.Line,
			Column: imp.Column,
			Import: imp.Path,
			From:   from.Path,
			To:     to.Path,
			Detail: fmt.Sprintf("module %q cannot depend on %q", from.Path, to.Path),
		}, true
	}

	observed[edgeKey{from: from.Path, to: to.Path}] = true

	if to.Strict && imp.Rel != to.Path {
		return Violation{
			Kind:   KindStrict,
			File:   file.Path,
			Line:   imp.Line,
			Column: imp.Column,
			Import: imp.Path,
			From:   from.Path,
			To:     to.Path,
			Detail: fmt.Sprintf("module %q is strict: only its root package may be imported", to.Path),
		}, true
	}

	return Violation{}, false
}

// unusedEdges reports declared internal edges never seen in the scan.
func unusedEdges(p *policy.Policy, observed map[edgeKey]bool) []Violation {
	var out []Violation

	for _, mod := range p.Modules() {
		for _, dep := range mod.DependsOn {
			if observed[edgeKey{from: mod.Path, to: dep}] {
				continue
			}

			out = append(out, Violation{
				Kind:   KindUnused,
				From:   mod.Path,
				To:     dep,
				Detail: fmt.Sprintf("declared dependency %q -> %q is never used", mod.Path, dep),
			})
		}
	}

	return out
}

// sortViolations orders findings by location, file-level findings
// before module-level ones, for stable output.
func sortViolations(violations []Violation) {
	slices.SortFunc(violations, func(a, b Violation) int {
		if c := compareFiles(a.File, b.File); c != 0 {
			return c
		}

		if a.Line != b.Line {
			return a.Line - b.Line
		}

		if a.Column != b.Column {
			return a.Column - b.Column
		}

		if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
			return c
		}

		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}

		return strings.Compare(a.To, b.To)
	})
}

// compareFiles sorts located findings first, then by path.
func compareFiles(a, b string) int {
	if a == "" && b != "" {
		return 1
	}

	if a != "" && b == "" {
		return -1
	}

	return strings.Compare(a, b)
}
