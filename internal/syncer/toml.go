package syncer

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/Sumatoshi-tech/depfence/internal/config"
)

// filePerm is the mode for a freshly written config file.
const filePerm = 0o644

// tmpExtension suffixes the staging file used for atomic replacement.
const tmpExtension = ".tmp"

// tomlDocument mirrors Config with toml tags in render order: scalars
// first, tables after, so the marshalled document stays valid.
type tomlDocument struct {
	Exclude                    []string      `toml:"exclude,omitempty"`
	SourceRoots                []string      `toml:"source_roots,omitempty"`
	Exact                      bool          `toml:"exact,omitempty"`
	ForbidCircularDependencies bool          `toml:"forbid_circular_dependencies,omitempty"`
	IgnoreTypeCheckingImports  bool          `toml:"ignore_type_checking_imports,omitempty"`
	Scan                       *tomlScan     `toml:"scan,omitempty"`
	Modules                    []tomlModule  `toml:"modules,omitempty"`
	External                   *tomlExternal `toml:"external,omitempty"`
}

type tomlModule struct {
	Path      string           `toml:"path"`
	Strict    bool             `toml:"strict,omitempty"`
	DependsOn []tomlDependency `toml:"depends_on,omitempty,inline"`
}

type tomlDependency struct {
	Path string `toml:"path"`
}

type tomlScan struct {
	Workers     int    `toml:"workers,omitempty"`
	MaxFileSize string `toml:"max_file_size,omitempty"`
	Cache       bool   `toml:"cache"`
}

type tomlExternal struct {
	Exclude []string `toml:"exclude,omitempty"`
}

// Render marshals the config into depfence.toml form. Values equal to
// the load-time defaults are left out so minimal configs stay minimal.
func Render(cfg *config.Config) ([]byte, error) {
	data, marshalErr := toml.Marshal(documentOf(cfg))
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal config: %w", marshalErr)
	}

	return data, nil
}

// Write atomically replaces the config file at path with data.
func Write(path string, data []byte) error {
	tmp := path + tmpExtension

	writeErr := os.WriteFile(tmp, data, filePerm)
	if writeErr != nil {
		return fmt.Errorf("write config: %w", writeErr)
	}

	renameErr := os.Rename(tmp, path)
	if renameErr != nil {
		os.Remove(tmp)

		return fmt.Errorf("replace config: %w", renameErr)
	}

	return nil
}

func documentOf(cfg *config.Config) *tomlDocument {
	doc := &tomlDocument{
		Exclude:                    cfg.Exclude,
		SourceRoots:                sourceRootsValue(cfg.SourceRoots),
		Exact:                      cfg.Exact,
		ForbidCircularDependencies: cfg.ForbidCircularDependencies,
		IgnoreTypeCheckingImports:  cfg.IgnoreTypeCheckingImports,
		Scan:                       scanSection(cfg.Scan),
		Modules:                    make([]tomlModule, 0, len(cfg.Modules)),
	}

	for _, mod := range cfg.Modules {
		entry := tomlModule{Path: mod.Path, Strict: mod.Strict}
		for _, dep := range mod.DependsOn {
			entry.DependsOn = append(entry.DependsOn, tomlDependency{Path: dep.Path})
		}

		doc.Modules = append(doc.Modules, entry)
	}

	if len(cfg.External.Exclude) > 0 {
		doc.External = &tomlExternal{Exclude: cfg.External.Exclude}
	}

	return doc
}

// sourceRootsValue drops the implicit ["."] so it round-trips through
// the loader default instead of cluttering every config.
func sourceRootsValue(roots []string) []string {
	if len(roots) == 1 && roots[0] == "." {
		return nil
	}

	return roots
}

// scanSection materializes [scan] only when some knob differs from its
// default.
func scanSection(scan config.ScanConfig) *tomlScan {
	defaultSize := scan.MaxFileSize == "" || scan.MaxFileSize == config.DefaultScanMaxFileSize
	if scan.Workers == config.DefaultScanWorkers && defaultSize && scan.Cache == config.DefaultScanCache {
		return nil
	}

	section := &tomlScan{
		Workers:     scan.Workers,
		MaxFileSize: scan.MaxFileSize,
		Cache:       scan.Cache,
	}

	if defaultSize {
		section.MaxFileSize = ""
	}

	return section
}
