// Package config loads hackdecl settings.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (HACKDECL_*)
//  2. Project config (.hackdecl/config.yml)
//  3. Built-in defaults
//
// Nested keys map to environment variables with underscores, for example
// scanner.backend becomes HACKDECL_SCANNER_BACKEND.
package config

// Config represents the complete hackdecl configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Scanner ScannerConfig `yaml:"scanner" mapstructure:"scanner"`
	Index   IndexConfig   `yaml:"index" mapstructure:"index"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for source files
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// ScannerConfig selects the declaration scanner.
type ScannerConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // see scanner.Backends
}

// IndexConfig controls the declaration index.
type IndexConfig struct {
	Database  string `yaml:"database" mapstructure:"database"`     // SQLite path, relative to the project root
	Workers   int    `yaml:"workers" mapstructure:"workers"`       // parallel extractions
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"` // max entries in the in-memory decl cache
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Code: []string{
				"**/*.hack",
				"**/*.hh",
				"**/*.hck",
				"**/*.php",
			},
			Ignore: []string{
				"vendor/**",
				".git/**",
				".hackdecl/**",
				"node_modules/**",
				"build/**",
			},
		},
		Scanner: ScannerConfig{
			Backend: "auto",
		},
		Index: IndexConfig{
			Database:  ".hackdecl/index.db",
			Workers:   4,
			CacheSize: 1024,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SourceExtensions returns the file extensions named by the code patterns,
// with leading dot (e.g. []string{".hack", ".php"}).
func (c *Config) SourceExtensions() []string {
	seen := make(map[string]bool)
	var exts []string
	for _, pattern := range c.Paths.Code {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			exts = append(exts, ext)
		}
	}
	return exts
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.hack" -> ".hack", "*.php" -> ".php"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
