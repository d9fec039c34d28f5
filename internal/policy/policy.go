// Package policy compiles the declared configuration into the rule set
// the checker consults: a module index with longest-prefix resolution,
// the declared edge set, strict-module markers and external exclusions.
// Compilation also runs the declared-graph validation.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/module"

	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/depgraph"
)

// Module is one compiled module boundary.
type Module struct {
	// Path is the normalized slash-separated package path.
	Path string
	// Strict restricts dependents to the module's root package.
	Strict bool
	// DependsOn lists permitted edges to other declared modules.
	DependsOn []string
	// ExternalDeps lists declared edge targets that are not modules but
	// match an external exclusion pattern.
	ExternalDeps []string
}

// ProblemKind classifies declared-graph validation findings.
type ProblemKind string

// Problem kinds, in the order validation runs.
const (
	ProblemInvalidPath       ProblemKind = "invalid-path"
	ProblemDuplicateModule   ProblemKind = "duplicate-module"
	ProblemSelfEdge          ProblemKind = "self-edge"
	ProblemDanglingEdge      ProblemKind = "dangling-edge"
	ProblemCycle             ProblemKind = "cycle"
	ProblemMissingSourceRoot ProblemKind = "missing-source-root"
)

// Problem is one declared-graph validation finding.
type Problem struct {
	Kind   ProblemKind `json:"kind"             yaml:"kind"`
	Module string      `json:"module,omitempty" yaml:"module,omitempty"`
	Detail string      `json:"detail"           yaml:"detail"`
}

func (p Problem) String() string {
	if p.Module == "" {
		return fmt.Sprintf("%s: %s", p.Kind, p.Detail)
	}

	return fmt.Sprintf("%s: %s: %s", p.Kind, p.Module, p.Detail)
}

// Policy is the compiled rule set.
type Policy struct {
	modules  []*Module
	byPath   map[string]*Module
	graph    *depgraph.Graph
	external []string

	exact              bool
	forbidCircular     bool
	ignoreTypeChecking bool
}

// Compile builds a Policy from the loaded configuration and returns it
// together with every declared-graph validation problem found. The
// policy is usable when the problem list is empty; callers treat a
// non-empty list as a refusal to check.
func Compile(cfg *config.Config) (*Policy, []Problem) {
	p := &Policy{
		byPath:             map[string]*Module{},
		graph:              depgraph.New(),
		external:           append([]string(nil), cfg.External.Exclude...),
		exact:              cfg.Exact,
		forbidCircular:     cfg.ForbidCircularDependencies,
		ignoreTypeChecking: cfg.IgnoreTypeCheckingImports,
	}

	problems := p.compileModules(cfg)
	problems = append(problems, p.compileEdges(cfg)...)

	if p.forbidCircular {
		for _, cycle := range p.graph.Cycles() {
			problems = append(problems, Problem{
				Kind:   ProblemCycle,
				Module: cycle[0],
				Detail: renderCycle(cycle),
			})
		}
	}

	problems = append(problems, checkSourceRoots(cfg)...)

	return p, problems
}

// compileModules indexes the declared modules, flagging invalid paths
// and duplicates. The first declaration of a duplicated path wins.
func (p *Policy) compileModules(cfg *config.Config) []Problem {
	var problems []Problem

	for _, declared := range cfg.Modules {
		path := NormalizePath(declared.Path)

		checkErr := module.CheckImportPath(path)
		if checkErr != nil {
			problems = append(problems, Problem{
				Kind:   ProblemInvalidPath,
				Module: declared.Path,
				Detail: checkErr.Error(),
			})

			continue
		}

		if _, dup := p.byPath[path]; dup {
			problems = append(problems, Problem{
				Kind:   ProblemDuplicateModule,
				Module: path,
				Detail: "module path declared more than once",
			})

			continue
		}

		mod := &Module{Path: path, Strict: declared.Strict}
		p.byPath[path] = mod
		p.modules = append(p.modules, mod)
		p.graph.AddNode(path)
	}

	return problems
}

// compileEdges resolves every depends_on entry against the module index
// and the external exclusions, flagging self-edges and dangling targets.
func (p *Policy) compileEdges(cfg *config.Config) []Problem {
	var problems []Problem

	compiled := map[string]bool{}

	for _, declared := range cfg.Modules {
		from := NormalizePath(declared.Path)

		mod, ok := p.byPath[from]
		if !ok || compiled[from] {
			// Invalid path, or a duplicate declaration whose surviving
			// instance is already compiled.
			continue
		}

		compiled[from] = true

		for _, dep := range declared.DependsOn {
			to := NormalizePath(dep.Path)

			if to == from {
				problems = append(problems, Problem{
					Kind:   ProblemSelfEdge,
					Module: from,
					Detail: "module declares a dependency on itself",
				})

				continue
			}

			if _, internal := p.byPath[to]; internal {
				if p.graph.AddEdge(from, to) {
					mod.DependsOn = append(mod.DependsOn, to)
				}

				continue
			}

			if p.IsExternalExcluded(to) {
				if !slices.Contains(mod.ExternalDeps, to) {
					mod.ExternalDeps = append(mod.ExternalDeps, to)
				}

				continue
			}

			problems = append(problems, Problem{
				Kind:   ProblemDanglingEdge,
				Module: from,
				Detail: fmt.Sprintf("depends on undeclared module %q", to),
			})
		}
	}

	return problems
}

func checkSourceRoots(cfg *config.Config) []Problem {
	var problems []Problem

	for _, root := range cfg.SourceRoots {
		full := filepath.Join(cfg.Dir, filepath.FromSlash(root))

		info, statErr := os.Stat(full)
		if statErr != nil {
			problems = append(problems, Problem{
				Kind:   ProblemMissingSourceRoot,
				Detail: fmt.Sprintf("source root %q does not exist", root),
			})

			continue
		}

		if !info.IsDir() {
			problems = append(problems, Problem{
				Kind:   ProblemMissingSourceRoot,
				Detail: fmt.Sprintf("source root %q is not a directory", root),
			})
		}
	}

	return problems
}

// Modules returns the compiled modules in declaration order.
func (p *Policy) Modules() []*Module {
	return p.modules
}

// Module returns the compiled module with the given normalized path.
func (p *Policy) Module(path string) (*Module, bool) {
	mod, ok := p.byPath[path]

	return mod, ok
}

// Graph returns the declared dependency graph. Callers must not mutate it.
func (p *Policy) Graph() *depgraph.Graph {
	return p.graph
}

// Allowed reports whether module from may depend on module to. A module
// always may depend on itself.
func (p *Policy) Allowed(from, to string) bool {
	if from == to {
		return true
	}

	return p.graph.HasEdge(from, to)
}

// Exact reports whether one-to-one declaration matching is required.
func (p *Policy) Exact() bool {
	return p.exact
}

// ForbidCircular reports whether declared cycles are validation errors.
func (p *Policy) ForbidCircular() bool {
	return p.forbidCircular
}

// IgnoreTypeCheckingImports reports whether verification-only imports
// are skipped by the scanner.
func (p *Policy) IgnoreTypeCheckingImports() bool {
	return p.ignoreTypeChecking
}

// renderCycle renders a cycle as an explicit module path loop.
func renderCycle(cycle []string) string {
	closed := append(append([]string(nil), cycle...), cycle[0])

	return strings.Join(closed, " -> ")
}
