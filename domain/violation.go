package domain

import (
	"math"
	"strconv"
)

const (
	// CategoryPoorCoverage is the violation category reported for low coverage
	CategoryPoorCoverage = "Poor coverage"

	// RulePoorCoverage is the machine-readable rule id (SARIF ruleId, CSV)
	RulePoorCoverage = "poor-coverage"

	// ViolationLine is the line every coverage violation is anchored at
	ViolationLine = 1
)

// Violation represents one poorly covered class resolved to one source file
type Violation struct {
	File      string  `json:"file" yaml:"file"`
	Line      int     `json:"line" yaml:"line"`
	Message   string  `json:"message" yaml:"message"`
	Category  string  `json:"category" yaml:"category"`
	Rule      string  `json:"rule" yaml:"rule"`
	ClassName string  `json:"class_name" yaml:"class_name"`
	Coverage  float64 `json:"coverage" yaml:"coverage"`
	Report    string  `json:"report" yaml:"report"`
}

// ViolationEmitter records violations on behalf of the host
type ViolationEmitter interface {
	Emit(v Violation)
}

// ViolationEmitterFunc adapts a function to ViolationEmitter
type ViolationEmitterFunc func(v Violation)

// Emit calls f(v)
func (f ViolationEmitterFunc) Emit(v Violation) {
	f(v)
}

// NewCoverageViolation builds the violation emitted for a matched source file.
// An empty category falls back to CategoryPoorCoverage.
func NewCoverageViolation(file string, record ClassCoverageRecord, category, report string) Violation {
	if category == "" {
		category = CategoryPoorCoverage
	}
	return Violation{
		File:      file,
		Line:      ViolationLine,
		Message:   CoverageMessage(record.CoveragePercent),
		Category:  category,
		Rule:      RulePoorCoverage,
		ClassName: record.ClassName,
		Coverage:  record.CoveragePercent,
		Report:    report,
	}
}

// CoverageMessage returns the human-readable violation message
func CoverageMessage(coverage float64) string {
	return "The coverage is: " + FormatCoverage(coverage) + "%"
}

// FormatCoverage renders a percentage in its shortest decimal form, keeping
// one fractional digit for integral values (30 -> "30.0", 42.5 -> "42.5").
func FormatCoverage(coverage float64) string {
	if math.IsNaN(coverage) || math.IsInf(coverage, 0) {
		return strconv.FormatFloat(coverage, 'f', -1, 64)
	}
	if coverage == math.Trunc(coverage) {
		return strconv.FormatFloat(coverage, 'f', 1, 64)
	}
	return strconv.FormatFloat(coverage, 'f', -1, 64)
}
