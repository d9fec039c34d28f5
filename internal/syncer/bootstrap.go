package syncer

import (
	"strings"

	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

// groupDirs are Go's conventional grouping directories. They carry no
// boundary meaning of their own, so starter modules reach one level
// deeper into them.
var groupDirs = map[string]bool{
	"internal": true,
	"cmd":      true,
	"pkg":      true,
}

// Bootstrap derives a starter configuration from a scan: top-level
// packages become modules and the imports observed between them become
// declared edges. The result is a tight fit for the current tree that
// the author loosens or tightens from there.
func Bootstrap(scan *scanner.Result, dir string, sourceRoots []string) *config.Config {
	if len(sourceRoots) == 0 {
		sourceRoots = []string{"."}
	}

	cfg := &config.Config{
		SourceRoots: sourceRoots,
		Dir:         dir,
		Scan: config.ScanConfig{
			MaxFileSize: config.DefaultScanMaxFileSize,
			Cache:       config.DefaultScanCache,
		},
	}

	for _, path := range bootstrapModules(scan) {
		cfg.Modules = append(cfg.Modules, config.ModuleConfig{Path: path})
	}

	pol, _ := policy.Compile(cfg)
	obs := observe(pol, scan)

	for i, mod := range cfg.Modules {
		for _, to := range sortedKeys(obs.internal[mod.Path]) {
			cfg.Modules[i].DependsOn = append(cfg.Modules[i].DependsOn, config.DependencyConfig{Path: to})
		}
	}

	return cfg
}

// bootstrapModules lists the starter module paths: the first package
// path segment, or the first two inside a grouping directory. Files in
// the root package stay unowned.
func bootstrapModules(scan *scanner.Result) []string {
	set := map[string]bool{}

	for _, file := range scan.Files {
		if file.Package == "" {
			continue
		}

		first, rest, nested := strings.Cut(file.Package, "/")

		path := first
		if nested && groupDirs[first] {
			second, _, _ := strings.Cut(rest, "/")
			path = first + "/" + second
		}

		set[path] = true
	}

	return sortedKeys(set)
}
