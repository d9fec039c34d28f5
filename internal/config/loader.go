package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file name, including extension.
const FileName = "depfence.toml"

// configType is the config file format.
const configType = "toml"

// envPrefix is the environment variable prefix for depfence settings.
const envPrefix = "DEPFENCE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from file, env vars, and defaults. If path is
// non-empty, it is used as the explicit config file path. Otherwise
// depfence.toml is searched upward from the working directory. A missing
// config file is not an error; the returned Config then carries defaults
// only and has an empty File.
func Load(path string) (*Config, error) {
	return LoadFrom(path, ".")
}

// LoadFrom is Load with an explicit directory to start the upward search
// from and to resolve a config-less run against.
func LoadFrom(path, dir string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if path == "" {
		path = findConfigFile(dir)
	}

	if path != "" {
		viperCfg.SetConfigFile(path)

		readErr := viperCfg.ReadInConfig()
		if readErr != nil {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	anchorErr := cfg.anchor(path, dir)
	if anchorErr != nil {
		return nil, anchorErr
	}

	return &cfg, nil
}

// anchor records where the config came from so later stages can resolve
// source roots and go.mod against the config file location.
func (c *Config) anchor(path, dir string) error {
	if path != "" {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return fmt.Errorf("resolve config path: %w", absErr)
		}

		c.File = abs
		c.Dir = filepath.Dir(abs)

		return nil
	}

	abs, absErr := filepath.Abs(dir)
	if absErr != nil {
		return fmt.Errorf("resolve working directory: %w", absErr)
	}

	c.Dir = abs

	return nil
}

// Find locates depfence.toml by upward search from dir without loading
// it. Returns "" when no config file exists on the way to the
// filesystem root.
func Find(dir string) string {
	return findConfigFile(dir)
}

// findConfigFile walks from dir up to the filesystem root looking for
// depfence.toml. Returns "" when no config file exists on the way.
func findConfigFile(dir string) string {
	current, absErr := filepath.Abs(dir)
	if absErr != nil {
		return ""
	}

	for {
		candidate := filepath.Join(current, FileName)

		info, statErr := os.Stat(candidate)
		if statErr == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}

		current = parent
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("exclude", []string{})
	viperCfg.SetDefault("source_roots", []string{"."})
	viperCfg.SetDefault("exact", DefaultExact)
	viperCfg.SetDefault("forbid_circular_dependencies", DefaultForbidCircularDependencies)
	viperCfg.SetDefault("ignore_type_checking_imports", DefaultIgnoreTypeCheckingImports)

	viperCfg.SetDefault("external.exclude", []string{})

	viperCfg.SetDefault("scan.workers", DefaultScanWorkers)
	viperCfg.SetDefault("scan.max_file_size", DefaultScanMaxFileSize)
	viperCfg.SetDefault("scan.cache", DefaultScanCache)
}
