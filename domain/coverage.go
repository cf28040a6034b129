package domain

import (
	"context"
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
	OutputFormatSARIF OutputFormat = "sarif"
	OutputFormatCSV   OutputFormat = "csv"
)

// Default values for a coverage run
const (
	DefaultReportName   = "opencover.xml"
	DefaultMinThreshold = 0.0
	DefaultMaxThreshold = 50.0
)

// DefaultSourceExtensions lists the source file extensions a class may resolve to
var DefaultSourceExtensions = []string{"cs", "fs", "vb", "asp", "aspx"}

// ClassCoverageRecord is the coverage extracted for one class element
type ClassCoverageRecord struct {
	ClassName       string  `json:"class_name" yaml:"class_name"`
	CoveragePercent float64 `json:"coverage_percent" yaml:"coverage_percent"`
}

// ThresholdConfig is the admissible band [Min, Max)
type ThresholdConfig struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DefaultThresholdConfig returns the band [0, 50)
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{Min: DefaultMinThreshold, Max: DefaultMaxThreshold}
}

// Admissible reports whether coverage falls in [Min, Max)
func (t ThresholdConfig) Admissible(coverage float64) bool {
	return t.Min <= coverage && coverage < t.Max
}

// CoverageRequest is the immutable input of a coverage run
type CoverageRequest struct {
	// Root is the directory searched for both reports and source files
	Root string

	// ReportName is the exact basename identifying report files
	ReportName string

	Threshold ThresholdConfig

	// Extensions whitelists source file extensions (without the dot)
	Extensions []string

	// Category is attached to every violation
	Category string

	// Traversal options
	ExcludePatterns  []string
	RespectGitignore bool

	// Workers bounds how many reports are processed at once (0 = NumCPU)
	Workers int

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	OutputPath   string
	ShowDetails  bool

	// Configuration
	ConfigPath string
}

// ReportSummary describes the outcome of one report file
type ReportSummary struct {
	Path              string `json:"path" yaml:"path"`
	RecordsParsed     int    `json:"records_parsed" yaml:"records_parsed"`
	AdmissibleRecords int    `json:"admissible_records" yaml:"admissible_records"`
	Violations        int    `json:"violations" yaml:"violations"`
	MalformedRecords  int    `json:"malformed_records" yaml:"malformed_records"`
	Failed            bool   `json:"failed" yaml:"failed"`
	Error             string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CoverageSummary aggregates counters over a run
type CoverageSummary struct {
	ReportsFound      int     `json:"reports_found" yaml:"reports_found"`
	ReportsParsed     int     `json:"reports_parsed" yaml:"reports_parsed"`
	ReportsFailed     int     `json:"reports_failed" yaml:"reports_failed"`
	RecordsParsed     int     `json:"records_parsed" yaml:"records_parsed"`
	AdmissibleRecords int     `json:"admissible_records" yaml:"admissible_records"`
	UnmatchedRecords  int     `json:"unmatched_records" yaml:"unmatched_records"`
	MalformedRecords  int     `json:"malformed_records" yaml:"malformed_records"`
	TotalViolations   int     `json:"total_violations" yaml:"total_violations"`
	MinThreshold      float64 `json:"min_threshold" yaml:"min_threshold"`
	MaxThreshold      float64 `json:"max_threshold" yaml:"max_threshold"`
}

// CoverageResponse is the complete result of a coverage run
type CoverageResponse struct {
	Violations []Violation     `json:"violations" yaml:"violations"`
	Reports    []ReportSummary `json:"reports" yaml:"reports"`
	Summary    CoverageSummary `json:"summary" yaml:"summary"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	GeneratedAt string      `json:"generated_at" yaml:"generated_at"`
	Version     string      `json:"version" yaml:"version"`
	DurationMs  int64       `json:"duration_ms" yaml:"duration_ms"`
	Config      interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// HasViolations reports whether the run produced any violation
func (r *CoverageResponse) HasViolations() bool {
	return len(r.Violations) > 0
}

// CoverageService defines the core coverage analysis
type CoverageService interface {
	// Analyze discovers reports under req.Root and emits violations
	Analyze(ctx context.Context, req CoverageRequest) (*CoverageResponse, error)

	// AnalyzeReport processes a single report file against req.Root
	AnalyzeReport(ctx context.Context, reportPath string, req CoverageRequest) (*CoverageResponse, error)
}

// OutputFormatter defines the interface for formatting coverage results
type OutputFormatter interface {
	Write(response *CoverageResponse, format OutputFormat, writer io.Writer) error
}

// ConfigurationLoader defines the interface for loading configuration
type ConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*CoverageRequest, error)

	// LoadDefaultConfig loads the discovered or built-in configuration
	LoadDefaultConfig() *CoverageRequest

	// MergeConfig merges CLI flags with configuration file
	MergeConfig(base *CoverageRequest, override *CoverageRequest) *CoverageRequest
}
