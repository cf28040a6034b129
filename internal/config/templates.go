package config

import (
	"strconv"
	"strings"
)

// Strictness represents how aggressively poorly covered classes are reported
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// StrictnessPreset holds the threshold band for a strictness level
type StrictnessPreset struct {
	MinThreshold float64
	MaxThreshold float64
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			MinThreshold: 0,
			MaxThreshold: 30,
		},
		StrictnessStandard: {
			MinThreshold: DefaultMinThreshold,
			MaxThreshold: DefaultMaxThreshold,
		},
		StrictnessStrict: {
			MinThreshold: 0,
			MaxThreshold: 80,
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(strictness Strictness, reportName string) string {
	preset, ok := GetStrictnessPresets()[strictness]
	if !ok {
		preset = GetStrictnessPresets()[StrictnessStandard]
	}
	if reportName == "" {
		reportName = DefaultReportName
	}

	defaults := DefaultConfig()

	return `# covscan configuration
# Documentation: https://github.com/ludo-technologies/covscan

# =============================================================================
# COVERAGE BAND
# =============================================================================
# Classes whose sequence coverage is >= min_threshold and < max_threshold are
# reported as "Poor coverage" on every matching source file.
coverage:
  # Inclusive lower bound, in percent
  min_threshold: ` + formatFloat(preset.MinThreshold) + `

  # Exclusive upper bound, in percent
  max_threshold: ` + formatFloat(preset.MaxThreshold) + `

  # Exact file name of the coverage reports to process
  report_name: ` + strconv.Quote(reportName) + `

  # Category attached to every violation
  category: ` + strconv.Quote(defaults.Coverage.Category) + `

# =============================================================================
# SOURCE MATCHING
# =============================================================================
# A class Ns.Foo matches files named Foo.<anything>.<ext> with one of these
# extensions.
source:
  extensions: ` + formatYAMLList(defaults.Source.Extensions) + `

# =============================================================================
# ANALYSIS SCOPE
# =============================================================================
analysis:
  # Directory names (or globs) never descended into
  exclude_patterns: ` + formatYAMLList(defaults.Analysis.ExcludePatterns) + `

  # Skip paths ignored by the .gitignore at the analysis root
  respect_gitignore: false

  # Reports processed concurrently (0 = one per CPU)
  workers: ` + strconv.Itoa(defaults.Analysis.Workers) + `

# =============================================================================
# OUTPUT
# =============================================================================
output:
  # text, json, yaml, sarif or csv
  format: ` + defaults.Output.Format + `

  # Write to this file instead of stdout
  path: ""

  # Include per-report statistics in text output
  show_details: false

logging:
  # debug, info, warn or error
  level: ` + defaults.Logging.Level + `

metrics:
  # Prometheus textfile collector output (empty = disabled)
  textfile: ""
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return DefaultConfigYAML
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatYAMLList formats a string slice as a YAML flow sequence
func formatYAMLList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
