package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/covscan/internal/constants"
)

// Default coverage band and report settings
const (
	// DefaultMinThreshold is the inclusive lower bound of the admissible band
	DefaultMinThreshold = 0.0

	// DefaultMaxThreshold is the exclusive upper bound of the admissible band
	// Classes covered below 50% are reported
	DefaultMaxThreshold = 50.0

	// DefaultReportName is the basename identifying coverage reports
	DefaultReportName = "opencover.xml"

	// DefaultCategory is attached to every violation
	DefaultCategory = "Poor coverage"
)

// Default analysis settings
const (
	// DefaultWorkers processes reports one at a time
	DefaultWorkers = 1

	// DefaultLogLevel only surfaces warnings and errors
	DefaultLogLevel = "warn"

	// DefaultOutputFormat is the human readable report
	DefaultOutputFormat = "text"
)

// Property names used by the original rule definition, still accepted at the
// top level of a config file
const (
	legacyMaxThresholdKey = "maxThreshold"
	legacyMinThresholdKey = "minThreshold"
	legacyReportNameKey   = "COVERAGE_REPORT_NAME"
)

// Config represents the main configuration structure
type Config struct {
	// Coverage holds the threshold band and report discovery settings
	Coverage CoverageConfig `json:"coverage" mapstructure:"coverage" yaml:"coverage"`

	// Source holds source file matching settings
	Source SourceConfig `json:"source" mapstructure:"source" yaml:"source"`

	// Analysis holds traversal and execution settings
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis" yaml:"analysis"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Logging holds logger configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`

	// Metrics holds Prometheus textfile export configuration
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics" yaml:"metrics"`
}

// CoverageConfig holds the admissible band and the report name
type CoverageConfig struct {
	// MinThreshold is the inclusive lower bound, in percent
	MinThreshold float64 `json:"min_threshold" mapstructure:"min_threshold" yaml:"min_threshold"`

	// MaxThreshold is the exclusive upper bound, in percent
	MaxThreshold float64 `json:"max_threshold" mapstructure:"max_threshold" yaml:"max_threshold"`

	// ReportName is the exact basename of report files to process
	ReportName string `json:"report_name" mapstructure:"report_name" yaml:"report_name"`

	// Category is the violation category
	Category string `json:"category" mapstructure:"category" yaml:"category"`
}

// SourceConfig holds source matching configuration
type SourceConfig struct {
	// Extensions lists source file extensions without the leading dot
	Extensions []string `json:"extensions" mapstructure:"extensions" yaml:"extensions"`
}

// AnalysisConfig holds general analysis configuration
type AnalysisConfig struct {
	// ExcludePatterns prunes directories by name or glob
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// RespectGitignore prunes paths ignored by the root .gitignore
	RespectGitignore bool `json:"respect_gitignore" mapstructure:"respect_gitignore" yaml:"respect_gitignore"`

	// Workers bounds concurrent report processing (0 = number of CPUs)
	Workers int `json:"workers" mapstructure:"workers" yaml:"workers"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml, sarif, csv
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// Path writes the report to a file instead of stdout when set
	Path string `json:"path" mapstructure:"path" yaml:"path"`

	// ShowDetails adds per-report statistics to text output
	ShowDetails bool `json:"show_details" mapstructure:"show_details" yaml:"show_details"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" mapstructure:"level" yaml:"level"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// Textfile is where run metrics are written (empty = disabled)
	Textfile string `json:"textfile" mapstructure:"textfile" yaml:"textfile"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Coverage: CoverageConfig{
			MinThreshold: DefaultMinThreshold,
			MaxThreshold: DefaultMaxThreshold,
			ReportName:   DefaultReportName,
			Category:     DefaultCategory,
		},
		Source: SourceConfig{
			Extensions: []string{"cs", "fs", "vb", "asp", "aspx"},
		},
		Analysis: AnalysisConfig{
			ExcludePatterns:  []string{".git"},
			RespectGitignore: false,
			Workers:          DefaultWorkers,
		},
		Output: OutputConfig{
			Format:      DefaultOutputFormat,
			ShowDetails: false,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration with target path context.
// When configPath is empty a config file is searched from targetPath upward.
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// loadConfigFromFile reads and parses a configuration file.
// An empty path still applies COVSCAN_* environment overrides.
func loadConfigFromFile(configPath string) (*Config, error) {
	// Create a new viper instance to avoid race conditions
	v := newViper()
	config := DefaultConfig()
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		applyLegacyKeys(v)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("coverage.min_threshold", c.Coverage.MinThreshold)
	v.SetDefault("coverage.max_threshold", c.Coverage.MaxThreshold)
	v.SetDefault("coverage.report_name", c.Coverage.ReportName)
	v.SetDefault("coverage.category", c.Coverage.Category)
	v.SetDefault("source.extensions", c.Source.Extensions)
	v.SetDefault("analysis.exclude_patterns", c.Analysis.ExcludePatterns)
	v.SetDefault("analysis.respect_gitignore", c.Analysis.RespectGitignore)
	v.SetDefault("analysis.workers", c.Analysis.Workers)
	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.path", c.Output.Path)
	v.SetDefault("output.show_details", c.Output.ShowDetails)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("metrics.textfile", c.Metrics.Textfile)
}

// applyLegacyKeys maps the original rule properties onto their nested keys.
// A nested key present in the file wins; environment variables still
// override both.
func applyLegacyKeys(v *viper.Viper) {
	legacy := map[string]string{
		legacyMinThresholdKey: "coverage.min_threshold",
		legacyMaxThresholdKey: "coverage.max_threshold",
		legacyReportNameKey:   "coverage.report_name",
	}
	for oldKey, newKey := range legacy {
		if v.InConfig(oldKey) && !v.InConfig(newKey) {
			v.SetDefault(newKey, v.Get(oldKey))
		}
	}
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for default configuration files in common locations
// targetPath is the directory being analyzed
func findDefaultConfig(targetPath string) string {
	candidates := constants.ConfigFileCandidates

	// If targetPath is provided, search from there upward
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			// If it's a file, start from its directory
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			// Handle Windows edge cases: volume roots (C:\), UNC paths (\\server\share)
			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, candidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	// Fallback to current directory
	if config := searchConfigInDirectory(".", candidates); config != "" {
		return config
	}

	// Check XDG config directory (Linux/Mac standard)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), candidates); config != "" {
			return config
		}
	}

	// Check ~/.config/covscan/ (XDG default)
	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", constants.ToolName)
		if config := searchConfigInDirectory(configDir, candidates); config != "" {
			return config
		}
	}

	// Check COVSCAN_CONFIG environment variable as fallback
	if envConfig := os.Getenv(constants.EnvVarPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := c.validateCoverageConfig(); err != nil {
		return err
	}

	if len(c.Source.Extensions) == 0 {
		return fmt.Errorf("source.extensions cannot be empty")
	}
	for _, ext := range c.Source.Extensions {
		if ext == "" || strings.Contains(ext, ".") {
			return fmt.Errorf("invalid source.extensions entry '%s', use the bare extension (e.g. cs)", ext)
		}
	}

	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must be >= 0, got %d", c.Analysis.Workers)
	}

	if !constants.IsValidOutputFormat(c.Output.Format) {
		return fmt.Errorf("invalid output.format '%s', must be one of: %s",
			c.Output.Format, strings.Join(constants.OutputFormats, ", "))
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// validateCoverageConfig validates the threshold band and the report name
func (c *Config) validateCoverageConfig() error {
	lo, hi := c.Coverage.MinThreshold, c.Coverage.MaxThreshold
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return fmt.Errorf("coverage thresholds must be numbers")
	}

	if lo < 0 {
		return fmt.Errorf("coverage.min_threshold must be >= 0, got %g", lo)
	}

	if hi <= lo {
		return fmt.Errorf("coverage.max_threshold (%g) must be > min_threshold (%g)", hi, lo)
	}

	name := c.Coverage.ReportName
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("coverage.report_name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("coverage.report_name must be a file name, not a path: %s", name)
	}

	return nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("coverage", config.Coverage)
	v.Set("source", config.Source)
	v.Set("analysis", config.Analysis)
	v.Set("output", config.Output)
	v.Set("logging", config.Logging)
	v.Set("metrics", config.Metrics)

	return v.WriteConfig()
}
