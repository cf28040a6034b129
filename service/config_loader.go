package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/ludo-technologies/covscan/domain"
	"github.com/ludo-technologies/covscan/internal/config"
	"github.com/ludo-technologies/covscan/internal/constants"
)

// ConfigurationLoaderImpl implements the ConfigurationLoader interface
type ConfigurationLoaderImpl struct {
	// targetPath anchors the upward config file search
	targetPath string
}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// NewConfigurationLoaderForTarget searches config files from targetPath upward
func NewConfigurationLoaderForTarget(targetPath string) *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{targetPath: targetPath}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.CoverageRequest, error) {
	cfg, err := config.LoadConfigWithTarget(path, c.targetPath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}

	req := ConvertToCoverageRequest(cfg)
	req.ConfigPath = path
	return req, nil
}

// LoadDefaultConfig loads the discovered configuration, falling back to the
// built-in defaults when none can be read
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.CoverageRequest {
	cfg, err := config.LoadConfigWithTarget("", c.targetPath)
	if err == nil {
		return ConvertToCoverageRequest(cfg)
	}

	// Fall back to hardcoded default configuration
	return ConvertToCoverageRequest(config.DefaultConfig())
}

// MergeConfig merges CLI flags with configuration file.
// Zero values in override keep the base value.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.CoverageRequest, override *domain.CoverageRequest) *domain.CoverageRequest {
	merged := *base

	// Root always comes from the command line when given
	if override.Root != "" {
		merged.Root = override.Root
	}

	if override.ReportName != "" {
		merged.ReportName = override.ReportName
	}

	// The band is replaced as a whole; a zero band means "not set"
	if override.Threshold != (domain.ThresholdConfig{}) {
		merged.Threshold = override.Threshold
	}

	if len(override.Extensions) > 0 {
		merged.Extensions = override.Extensions
	}

	if override.Category != "" {
		merged.Category = override.Category
	}

	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = override.ExcludePatterns
	}

	if override.RespectGitignore {
		merged.RespectGitignore = true
	}

	if override.Workers > 0 {
		merged.Workers = override.Workers
	}

	// Output configuration
	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}

	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}

	if override.OutputPath != "" {
		merged.OutputPath = override.OutputPath
	}

	if override.ShowDetails {
		merged.ShowDetails = true
	}

	// Config path is always from override if provided
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}

	return &merged
}

// ConvertToCoverageRequest converts a Config to a CoverageRequest
func ConvertToCoverageRequest(cfg *config.Config) *domain.CoverageRequest {
	return &domain.CoverageRequest{
		// Root is set by the caller, not from config
		ReportName: cfg.Coverage.ReportName,
		Threshold: domain.ThresholdConfig{
			Min: cfg.Coverage.MinThreshold,
			Max: cfg.Coverage.MaxThreshold,
		},
		Category:   cfg.Coverage.Category,
		Extensions: append([]string(nil), cfg.Source.Extensions...),

		ExcludePatterns:  append([]string(nil), cfg.Analysis.ExcludePatterns...),
		RespectGitignore: cfg.Analysis.RespectGitignore,
		Workers:          cfg.Analysis.Workers,

		OutputFormat: domain.OutputFormat(cfg.Output.Format),
		OutputPath:   cfg.Output.Path,
		ShowDetails:  cfg.Output.ShowDetails,
	}
}

// ValidateConfig validates a merged request
func (c *ConfigurationLoaderImpl) ValidateConfig(req *domain.CoverageRequest) error {
	lo, hi := req.Threshold.Min, req.Threshold.Max
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return fmt.Errorf("thresholds must be numbers")
	}

	if lo < 0 {
		return fmt.Errorf("min_threshold must be >= 0, got %g", lo)
	}

	if hi <= lo {
		return fmt.Errorf("max_threshold (%g) must be greater than min_threshold (%g)", hi, lo)
	}

	if strings.TrimSpace(req.ReportName) == "" {
		return fmt.Errorf("report name cannot be empty")
	}

	if strings.ContainsAny(req.ReportName, `/\`) {
		return fmt.Errorf("report name must be a file name, not a path: %s", req.ReportName)
	}

	if len(req.Extensions) == 0 {
		return fmt.Errorf("at least one source extension is required")
	}

	if req.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", req.Workers)
	}

	if !constants.IsValidOutputFormat(string(req.OutputFormat)) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			req.OutputFormat, strings.Join(constants.OutputFormats, ", "))
	}

	return nil
}
