package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/covscan/domain"
)

func sampleResponse(root string) *domain.CoverageResponse {
	record := domain.ClassCoverageRecord{ClassName: "Foo.Bar.MyClass", CoveragePercent: 30}
	report := filepath.Join(root, "tests", "opencover.xml")
	return &domain.CoverageResponse{
		Violations: []domain.Violation{
			domain.NewCoverageViolation(filepath.Join(root, "src", "MyClass.cs"), record, "", report),
			domain.NewCoverageViolation(filepath.Join(root, "src", "MyClass.Designer.cs"), record, "", report),
		},
		Reports: []domain.ReportSummary{
			{Path: report, RecordsParsed: 3, AdmissibleRecords: 1, Violations: 2},
		},
		Summary: domain.CoverageSummary{
			ReportsFound:      1,
			ReportsParsed:     1,
			RecordsParsed:     3,
			AdmissibleRecords: 1,
			TotalViolations:   2,
			MinThreshold:      0,
			MaxThreshold:      50,
		},
		GeneratedAt: "2024-01-01T00:00:00Z",
		Version:     "1.2.3",
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]interface{}{"name": "test", "value": 42}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse output as JSON: %v", err)
	}
	if result["name"] != "test" {
		t.Errorf("Expected name to be 'test', got %v", result["name"])
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer

	err := NewOutputFormatterWithBase(root).Write(sampleResponse(root), domain.OutputFormatText, &buf)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	output := buf.String()
	expected := []string{
		"=== Coverage Analysis ===",
		"Version: 1.2.3",
		"Threshold: [0.0%, 50.0%)",
		"Reports found: 1",
		"Below threshold: 1",
		"Violations: 2",
		filepath.Join("src", "MyClass.cs") + ":1: The coverage is: 30.0% [Poor coverage]",
		"Class: Foo.Bar.MyClass",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q\n%s", want, output)
		}
	}
	if strings.Contains(output, root) {
		t.Error("Paths should be relative to the base directory")
	}
	if strings.Contains(output, "Reports:\n") {
		t.Error("A single successful report should not be listed without details")
	}
	if strings.Contains(output, "Malformed") {
		t.Error("Malformed count should be hidden when zero")
	}
}

func TestOutputFormatter_TextDetails(t *testing.T) {
	root := t.TempDir()
	resp := sampleResponse(root)
	resp.Warnings = []string{"cannot load .gitignore"}
	resp.Errors = []string{"[bad.xml] failed"}

	var buf bytes.Buffer
	if err := NewOutputFormatterWithBase(root).WithDetails(true).Write(resp, domain.OutputFormatText, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Reports:\n",
		filepath.Join("tests", "opencover.xml"),
		"Classes: 3, below threshold: 1, violations: 2",
		"Warnings:\n  - cannot load .gitignore",
		"Errors:\n  - [bad.xml] failed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q\n%s", want, output)
		}
	}
}

func TestOutputFormatter_TextFailedReport(t *testing.T) {
	resp := sampleResponse("/work")
	resp.Reports[0].Failed = true
	resp.Summary.ReportsFailed = 1

	var buf bytes.Buffer
	if err := NewOutputFormatter().Write(resp, domain.OutputFormatText, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "[FAILED]") {
		t.Errorf("Failed report should be listed\n%s", buf.String())
	}
}

func TestOutputFormatter_TextNoViolations(t *testing.T) {
	resp := &domain.CoverageResponse{Summary: domain.CoverageSummary{MaxThreshold: 50}}

	var buf bytes.Buffer
	if err := NewOutputFormatter().Write(resp, "", &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No poorly covered classes found.") {
		t.Errorf("Unexpected output\n%s", buf.String())
	}
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutputFormatter().Write(sampleResponse("/work"), domain.OutputFormatJSON, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded struct {
		Violations []struct {
			File     string  `json:"file"`
			Line     int     `json:"line"`
			Message  string  `json:"message"`
			Coverage float64 `json:"coverage"`
		} `json:"violations"`
		Summary struct {
			TotalViolations int `json:"total_violations"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(decoded.Violations) != 2 || decoded.Summary.TotalViolations != 2 {
		t.Fatalf("Unexpected decoded response %+v", decoded)
	}
	if decoded.Violations[0].Message != "The coverage is: 30.0%" || decoded.Violations[0].Line != 1 {
		t.Errorf("Unexpected violation %+v", decoded.Violations[0])
	}
}

func TestOutputFormatter_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutputFormatter().Write(sampleResponse("/work"), domain.OutputFormatYAML, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid YAML: %v", err)
	}
	violations, ok := decoded["violations"].([]interface{})
	if !ok || len(violations) != 2 {
		t.Errorf("Expected 2 violations in YAML, got %v", decoded["violations"])
	}
	if decoded["version"] != "1.2.3" {
		t.Errorf("Expected version 1.2.3, got %v", decoded["version"])
	}
}

func TestOutputFormatter_SARIF(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	if err := NewOutputFormatterWithBase(root).Write(sampleResponse(root), domain.OutputFormatSARIF, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var log SARIFLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("Invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("Unexpected SARIF log %+v", log)
	}

	run := log.Runs[0]
	if run.Tool.Driver.Name != "covscan" || run.Tool.Driver.Version != "1.2.3" {
		t.Errorf("Unexpected driver %+v", run.Tool.Driver)
	}
	if len(run.Tool.Driver.Rules) != 1 || run.Tool.Driver.Rules[0].ID != domain.RulePoorCoverage {
		t.Errorf("Unexpected rules %+v", run.Tool.Driver.Rules)
	}
	if len(run.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(run.Results))
	}

	r := run.Results[0]
	if r.RuleID != domain.RulePoorCoverage || r.Level != "warning" {
		t.Errorf("Unexpected result %+v", r)
	}
	loc := r.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "src/MyClass.cs" {
		t.Errorf("Expected relative URI, got %q", loc.ArtifactLocation.URI)
	}
	if loc.Region.StartLine != 1 {
		t.Errorf("Expected start line 1, got %d", loc.Region.StartLine)
	}
}

func TestOutputFormatter_CSV(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	if err := NewOutputFormatterWithBase(root).Write(sampleResponse(root), domain.OutputFormatCSV, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "file,line,category,class,coverage,message" {
		t.Errorf("Unexpected header %v", rows[0])
	}
	want := []string{filepath.Join("src", "MyClass.cs"), "1", "Poor coverage", "Foo.Bar.MyClass", "30.0", "The coverage is: 30.0%"}
	if strings.Join(rows[1], "|") != strings.Join(want, "|") {
		t.Errorf("Unexpected row %v, want %v", rows[1], want)
	}
}

func TestOutputFormatter_Errors(t *testing.T) {
	formatter := NewOutputFormatter()
	var buf bytes.Buffer

	err := formatter.Write(sampleResponse("/work"), "xml", &buf)
	var domainErr domain.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeUnsupportedFormat {
		t.Errorf("Expected unsupported format error, got %v", err)
	}

	err = formatter.Write(nil, domain.OutputFormatJSON, &buf)
	if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeOutputError {
		t.Errorf("Expected output error for nil response, got %v", err)
	}
}

func TestToURI(t *testing.T) {
	tests := map[string]string{
		"src/MyClass.cs":     "src/MyClass.cs",
		"./src/MyClass.cs":   "src/MyClass.cs",
		"../../MyClass.cs":   "MyClass.cs",
		"  spaced/File.cs  ": "spaced/File.cs",
	}
	for in, want := range tests {
		if got := toURI(in); got != want {
			t.Errorf("toURI(%q) = %q, want %q", in, got, want)
		}
	}
}
