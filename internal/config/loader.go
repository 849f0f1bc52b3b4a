package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CODESWEEP_*)
// 2. Config file (.codesweep/config.yml or .codesweep/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".codesweep")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CODESWEEP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Scan configuration
	v.BindEnv("scan.roots")
	v.BindEnv("scan.workers")

	// Mutation configuration
	v.BindEnv("mutate.mode")
	v.BindEnv("mutate.undo_depth")

	// Storage configuration
	v.BindEnv("storage.cache_location")
	v.BindEnv("storage.snapshot_location")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("scan.roots", defaults.Scan.Roots)
	v.SetDefault("scan.excluded_dirs", defaults.Scan.ExcludedDirs)
	v.SetDefault("scan.skip_patterns", defaults.Scan.SkipPatterns)
	v.SetDefault("scan.languages", defaults.Scan.Languages)
	v.SetDefault("scan.workers", defaults.Scan.Workers)

	v.SetDefault("analyze.entry_points", defaults.Analyze.EntryPoints)
	v.SetDefault("analyze.exempt_patterns", defaults.Analyze.ExemptPatterns)

	v.SetDefault("mutate.mode", defaults.Mutate.Mode)
	v.SetDefault("mutate.undo_depth", defaults.Mutate.UndoDepth)

	v.SetDefault("storage.cache_location", defaults.Storage.CacheLocation)
	v.SetDefault("storage.snapshot_location", defaults.Storage.SnapshotLocation)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
