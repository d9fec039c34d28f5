// Package config provides TOML-based project configuration for depfence.
package config

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
)

// Config is the top-level configuration struct for depfence, mirroring
// the layout of depfence.toml. Field tags use mapstructure for viper
// unmarshalling.
type Config struct {
	Exclude                    []string       `mapstructure:"exclude"`
	SourceRoots                []string       `mapstructure:"source_roots"`
	Exact                      bool           `mapstructure:"exact"`
	ForbidCircularDependencies bool           `mapstructure:"forbid_circular_dependencies"`
	IgnoreTypeCheckingImports  bool           `mapstructure:"ignore_type_checking_imports"`
	Modules                    []ModuleConfig `mapstructure:"modules"`
	External                   ExternalConfig `mapstructure:"external"`
	Scan                       ScanConfig     `mapstructure:"scan"`

	// File is the absolute path of the loaded config file, or empty when
	// no file was found and only defaults apply.
	File string `mapstructure:"-"`
	// Dir is the directory the config file lives in. Source roots and
	// go.mod resolution are relative to it.
	Dir string `mapstructure:"-"`
}

// ModuleConfig declares one module boundary: a package subtree and the
// outgoing edges it may use.
type ModuleConfig struct {
	Path      string             `mapstructure:"path"`
	DependsOn []DependencyConfig `mapstructure:"depends_on"`
	Strict    bool               `mapstructure:"strict"`
}

// DependencyConfig is a single permitted outgoing edge.
type DependencyConfig struct {
	Path string `mapstructure:"path"`
}

// ExternalConfig exempts external package patterns from validation.
type ExternalConfig struct {
	Exclude []string `mapstructure:"exclude"`
}

// ScanConfig holds scan resource knobs.
type ScanConfig struct {
	Workers     int    `mapstructure:"workers"`
	MaxFileSize string `mapstructure:"max_file_size"`
	Cache       bool   `mapstructure:"cache"`
}

// Sentinel errors for configuration validation.
var (
	// ErrNoSourceRoots indicates source_roots was set to an empty list.
	ErrNoSourceRoots = errors.New("source_roots must not be empty")
	// ErrModulePathEmpty indicates a modules entry without a path.
	ErrModulePathEmpty = errors.New("modules entry is missing a path")
	// ErrDependencyPathEmpty indicates a depends_on entry without a path.
	ErrDependencyPathEmpty = errors.New("depends_on entry is missing a path")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("scan.workers must be non-negative")
	// ErrInvalidMaxFileSize indicates the max file size is not parseable.
	ErrInvalidMaxFileSize = errors.New("scan.max_file_size must be a byte size such as \"1 MiB\"")
)

// Validate checks Config invariants and returns the first error found.
// Graph-level properties (duplicates, dangling edges, cycles) are the
// policy layer's concern; this covers the shallow shape only.
func (c *Config) Validate() error {
	if len(c.SourceRoots) == 0 {
		return ErrNoSourceRoots
	}

	for _, module := range c.Modules {
		if strings.TrimSpace(module.Path) == "" {
			return ErrModulePathEmpty
		}

		for _, dep := range module.DependsOn {
			if strings.TrimSpace(dep.Path) == "" {
				return ErrDependencyPathEmpty
			}
		}
	}

	return c.validateScan()
}

func (c *Config) validateScan() error {
	if c.Scan.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Scan.MaxFileSize != "" {
		_, parseErr := humanize.ParseBytes(c.Scan.MaxFileSize)
		if parseErr != nil {
			return ErrInvalidMaxFileSize
		}
	}

	return nil
}

// MaxFileSizeBytes returns the scan size cap in bytes. Files larger than
// this are skipped by the scanner.
func (c *Config) MaxFileSizeBytes() uint64 {
	if c.Scan.MaxFileSize == "" {
		return DefaultMaxFileSizeBytes
	}

	size, parseErr := humanize.ParseBytes(c.Scan.MaxFileSize)
	if parseErr != nil {
		return DefaultMaxFileSizeBytes
	}

	return size
}
