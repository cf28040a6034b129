// Package testutil provides helper functions for testing covscan components
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Class describes one class element of a generated report.
// Coverage is written verbatim so tests can inject malformed values.
type Class struct {
	Name     string
	Coverage string
}

// ReportXML renders an OpenCover document holding the given classes
func ReportXML(classes ...Class) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	sb.WriteString("<CoverageSession>\n  <Modules>\n    <Module>\n      <Classes>\n")
	for _, c := range classes {
		sb.WriteString("        <Class>\n")
		sb.WriteString(`          <Summary sequenceCoverage="` + c.Coverage + `" branchCoverage="0" />` + "\n")
		sb.WriteString("          <FullName>" + c.Name + "</FullName>\n")
		sb.WriteString("        </Class>\n")
	}
	sb.WriteString("      </Classes>\n    </Module>\n  </Modules>\n</CoverageSession>\n")
	return sb.String()
}

// WriteFile writes content to root/rel, creating parent directories, and
// returns the absolute path
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("Failed to resolve %s: %v", path, err)
	}
	return abs
}

// WriteReport writes a report named name under root/dir
func WriteReport(t *testing.T, root, dir, name string, classes ...Class) string {
	t.Helper()
	return WriteFile(t, root, filepath.ToSlash(filepath.Join(dir, name)), ReportXML(classes...))
}

// CreateSourceTree writes an empty file for every relative path and returns
// their absolute paths in argument order
func CreateSourceTree(t *testing.T, root string, files ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(files))
	for _, rel := range files {
		paths = append(paths, WriteFile(t, root, rel, "// source\n"))
	}
	return paths
}

// AbsTempDir returns t.TempDir() with symlinks resolved, so paths compare
// equal to walker output on systems where the temp dir is a link
func AbsTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	return dir
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}
