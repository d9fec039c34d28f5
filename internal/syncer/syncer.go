// Package syncer reconciles the declared configuration with the
// imports actually observed in the tree: it plans missing edge
// declarations, optionally prunes unused ones, and writes the
// resulting config back as TOML.
package syncer

import (
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

// Edge is one planned declaration change.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	External bool   `json:"external,omitempty"`
}

// Plan lists the declaration changes sync would make.
type Plan struct {
	Add    []Edge `json:"add"`
	Remove []Edge `json:"remove"`
}

// Empty reports whether the declaration already matches observation.
func (p *Plan) Empty() bool {
	return len(p.Add) == 0 && len(p.Remove) == 0
}

// Options controls plan building.
type Options struct {
	// Prune also removes declared edges that are never observed.
	Prune bool
}

// observation holds the imports seen per module.
type observation struct {
	internal map[string]map[string]bool
	external map[string]map[string]bool
}

// Build compares the declared edges with the scan and produces the
// change plan. Added edges are internal only; declaring external
// packages is the author's call since they need matching exclusions.
func Build(p *policy.Policy, scan *scanner.Result, opts Options) *Plan {
	obs := observe(p, scan)
	plan := &Plan{}

	for _, mod := range p.Modules() {
		declared := map[string]bool{}
		for _, dep := range mod.DependsOn {
			declared[dep] = true
		}

		for _, to := range sortedKeys(obs.internal[mod.Path]) {
			if !declared[to] {
				plan.Add = append(plan.Add, Edge{From: mod.Path, To: to})
			}
		}

		if !opts.Prune {
			continue
		}

		for _, dep := range mod.DependsOn {
			if !obs.internal[mod.Path][dep] {
				plan.Remove = append(plan.Remove, Edge{From: mod.Path, To: dep})
			}
		}

		for _, ext := range mod.ExternalDeps {
			if !externalObserved(obs.external[mod.Path], ext) {
				plan.Remove = append(plan.Remove, Edge{From: mod.Path, To: ext, External: true})
			}
		}
	}

	return plan
}

// Apply returns a copy of the config with the plan applied and all
// module paths normalized to slash form.
func Apply(cfg *config.Config, plan *Plan) *config.Config {
	out := *cfg
	out.Modules = make([]config.ModuleConfig, len(cfg.Modules))

	added := map[string][]string{}
	for _, e := range plan.Add {
		added[e.From] = append(added[e.From], e.To)
	}

	removed := map[string]map[string]bool{}
	for _, e := range plan.Remove {
		if removed[e.From] == nil {
			removed[e.From] = map[string]bool{}
		}

		removed[e.From][e.To] = true
	}

	for i, mod := range cfg.Modules {
		path := policy.NormalizePath(mod.Path)

		var deps []config.DependencyConfig

		for _, dep := range mod.DependsOn {
			target := policy.NormalizePath(dep.Path)
			if removed[path][target] {
				continue
			}

			deps = append(deps, config.DependencyConfig{Path: target})
		}

		for _, target := range added[path] {
			deps = append(deps, config.DependencyConfig{Path: target})
		}

		out.Modules[i] = config.ModuleConfig{
			Path:      path,
			Strict:    mod.Strict,
			DependsOn: deps,
		}
	}

	return &out
}

// observe collects the per-module import sets from a scan.
func observe(p *policy.Policy, scan *scanner.Result) observation {
	obs := observation{
		internal: map[string]map[string]bool{},
		external: map[string]map[string]bool{},
	}

	for _, file := range scan.Files {
		from, owned := p.ResolveModule(file.Package)
		if !owned {
			continue
		}

		for _, imp := range file.Imports {
			switch imp.Kind {
			case scanner.ImportInternal:
				to, ok := p.ResolveModule(imp.Rel)
				if !ok || to.Path == from.Path {
					continue
				}

				addTo(obs.internal, from.Path, to.Path)
			case scanner.ImportExternal:
				addTo(obs.external, from.Path, imp.Path)
			case scanner.ImportStdlib:
			}
		}
	}

	return obs
}

// externalObserved reports whether any observed external import falls
// under the declared target path.
func externalObserved(observed map[string]bool, target string) bool {
	for path := range observed {
		if path == target || strings.HasPrefix(path, target+"/") {
			return true
		}
	}

	return false
}

func addTo(m map[string]map[string]bool, from, to string) {
	if m[from] == nil {
		m[from] = map[string]bool{}
	}

	m[from][to] = true
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
