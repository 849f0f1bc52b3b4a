package config

import (
	"path/filepath"

	"github.com/mvp-joe/codesweep/internal/lang"
)

// Config represents the complete codesweep configuration.
// It can be loaded from .codesweep/config.yml with environment variable
// overrides.
type Config struct {
	Scan    ScanConfig    `yaml:"scan" mapstructure:"scan"`
	Analyze AnalyzeConfig `yaml:"analyze" mapstructure:"analyze"`
	Mutate  MutateConfig  `yaml:"mutate" mapstructure:"mutate"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// ScanConfig defines what gets scanned and how.
type ScanConfig struct {
	Roots        []string            `yaml:"roots" mapstructure:"roots"`                 // monitored root directories, project-relative
	ExcludedDirs []string            `yaml:"excluded_dirs" mapstructure:"excluded_dirs"` // directory names or paths never entered
	SkipPatterns []string            `yaml:"skip_patterns" mapstructure:"skip_patterns"` // file basename globs never scanned
	Languages    map[string][]string `yaml:"languages" mapstructure:"languages"`         // language tag -> extensions
	Workers      int                 `yaml:"workers" mapstructure:"workers"`             // extraction pool size
}

// AnalyzeConfig defines dead-file analysis inputs.
type AnalyzeConfig struct {
	EntryPoints    []string `yaml:"entry_points" mapstructure:"entry_points"`       // reachability roots, project-relative
	ExemptPatterns []string `yaml:"exempt_patterns" mapstructure:"exempt_patterns"` // globs never flagged dead
}

// MutateConfig defines how destructive operations behave.
type MutateConfig struct {
	Mode      string `yaml:"mode" mapstructure:"mode"`             // "comment" or "remove"
	UndoDepth int    `yaml:"undo_depth" mapstructure:"undo_depth"` // bounded undo history
}

// StorageConfig defines where the scan cache and snapshots live.
type StorageConfig struct {
	CacheLocation    string `yaml:"cache_location" mapstructure:"cache_location"`       // scan cache database path
	SnapshotLocation string `yaml:"snapshot_location" mapstructure:"snapshot_location"` // snapshot store directory
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Roots:        []string{"src"},
			ExcludedDirs: []string{"node_modules", ".git", "dist", "build", "coverage", ".next", "__pycache__", "vendor", "target"},
			SkipPatterns: []string{"*.d.ts", "*.spec.*", "*.test.*"},
			Languages:    lang.DefaultExtensions(),
			Workers:      4,
		},
		Analyze: AnalyzeConfig{
			EntryPoints: nil, // conventions in the analyzer cover common layouts
			ExemptPatterns: []string{
				"test_*",
				"*_test.*",
				"conftest.py",
				"*.config.*",
				"setup.py",
			},
		},
		Mutate: MutateConfig{
			Mode:      "comment",
			UndoDepth: 12,
		},
		Storage: StorageConfig{
			CacheLocation:    filepath.Join(".codesweep", "cache.db"),
			SnapshotLocation: filepath.Join(".codesweep", "snapshots"),
		},
	}
}
