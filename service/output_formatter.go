package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/covscan/domain"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct {
	// baseDir makes file paths relative in text and SARIF output when set
	baseDir string

	showDetails bool
}

// WithDetails always lists per-report statistics in text output
func (f *OutputFormatterImpl) WithDetails(show bool) *OutputFormatterImpl {
	f.showDetails = show
	return f
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// NewOutputFormatterWithBase creates a formatter that prints paths relative to baseDir
func NewOutputFormatterWithBase(baseDir string) *OutputFormatterImpl {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		abs = baseDir
	}
	return &OutputFormatterImpl{baseDir: abs}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Write writes the coverage response in the specified format
func (f *OutputFormatterImpl) Write(response *domain.CoverageResponse, format domain.OutputFormat, writer io.Writer) error {
	if response == nil {
		return domain.NewOutputError("no response to write", nil)
	}

	var err error
	switch format {
	case domain.OutputFormatText, "":
		err = f.writeText(response, writer)
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, response)
	case domain.OutputFormatSARIF:
		err = f.writeSARIF(response, writer)
	case domain.OutputFormatCSV:
		err = f.writeCSV(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write %s output", format), err)
	}
	return nil
}

// writeText writes the coverage response as plain text
func (f *OutputFormatterImpl) writeText(response *domain.CoverageResponse, writer io.Writer) error {
	s := response.Summary

	fmt.Fprintf(writer, "\n=== Coverage Analysis ===\n\n")
	fmt.Fprintf(writer, "Generated: %s\n", response.GeneratedAt)
	fmt.Fprintf(writer, "Version: %s\n", response.Version)
	fmt.Fprintf(writer, "Threshold: [%s%%, %s%%)\n\n",
		domain.FormatCoverage(s.MinThreshold), domain.FormatCoverage(s.MaxThreshold))

	// Summary
	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Reports found: %d\n", s.ReportsFound)
	fmt.Fprintf(writer, "  Reports parsed: %d\n", s.ReportsParsed)
	fmt.Fprintf(writer, "  Reports failed: %d\n", s.ReportsFailed)
	fmt.Fprintf(writer, "  Classes parsed: %d\n", s.RecordsParsed)
	fmt.Fprintf(writer, "  Below threshold: %d\n", s.AdmissibleRecords)
	fmt.Fprintf(writer, "  Without source file: %d\n", s.UnmatchedRecords)
	if s.MalformedRecords > 0 {
		fmt.Fprintf(writer, "  Malformed coverage values: %d\n", s.MalformedRecords)
	}
	fmt.Fprintf(writer, "  Violations: %d\n", s.TotalViolations)
	fmt.Fprintf(writer, "\n")

	// Per-report details
	if f.showReports(response) {
		fmt.Fprintf(writer, "Reports:\n")
		for _, r := range response.Reports {
			status := ""
			if r.Failed {
				status = " [FAILED]"
			}
			fmt.Fprintf(writer, "  %s%s\n", f.displayPath(r.Path), status)
			fmt.Fprintf(writer, "    Classes: %d, below threshold: %d, violations: %d\n",
				r.RecordsParsed, r.AdmissibleRecords, r.Violations)
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(response.Violations) > 0 {
		fmt.Fprintf(writer, "Violations:\n")
		for _, v := range response.Violations {
			fmt.Fprintf(writer, "  %s:%d: %s [%s]\n", f.displayPath(v.File), v.Line, v.Message, v.Category)
			fmt.Fprintf(writer, "    Class: %s\n", v.ClassName)
		}
	} else {
		fmt.Fprintf(writer, "No poorly covered classes found.\n")
	}

	// Warnings
	if len(response.Warnings) > 0 {
		fmt.Fprintf(writer, "\nWarnings:\n")
		for _, w := range response.Warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
	}

	// Errors
	if len(response.Errors) > 0 {
		fmt.Fprintf(writer, "\nErrors:\n")
		for _, e := range response.Errors {
			fmt.Fprintf(writer, "  - %s\n", e)
		}
	}

	return nil
}

// showReports lists reports when details were requested, several were
// processed or one failed
func (f *OutputFormatterImpl) showReports(response *domain.CoverageResponse) bool {
	if len(response.Reports) == 0 {
		return false
	}
	return f.showDetails || len(response.Reports) > 1 || response.Summary.ReportsFailed > 0
}

// csvHeader is the header row of CSV output
var csvHeader = []string{"file", "line", "category", "class", "coverage", "message"}

// writeCSV writes one row per violation
func (f *OutputFormatterImpl) writeCSV(response *domain.CoverageResponse, writer io.Writer) error {
	w := csv.NewWriter(writer)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range response.Violations {
		row := []string{
			f.displayPath(v.File),
			strconv.Itoa(v.Line),
			v.Category,
			v.ClassName,
			domain.FormatCoverage(v.Coverage),
			v.Message,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// displayPath renders path relative to baseDir when it lies inside it
func (f *OutputFormatterImpl) displayPath(path string) string {
	if f.baseDir == "" {
		return path
	}
	rel, err := filepath.Rel(f.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
