package service

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ludo-technologies/covscan/domain"
	"github.com/ludo-technologies/covscan/internal/config"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("COVSCAN_CONFIG", "")
	return dir
}

func TestConfigurationLoader_LoadConfig(t *testing.T) {
	dir := isolateConfig(t)
	path := filepath.Join(dir, "covscan.yaml")
	content := `coverage:
  min_threshold: 5
  max_threshold: 70
  report_name: coverage.opencover.xml
source:
  extensions: [cs]
analysis:
  workers: 3
output:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	req, err := NewConfigurationLoader().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if req.Threshold != (domain.ThresholdConfig{Min: 5, Max: 70}) {
		t.Errorf("Unexpected threshold %+v", req.Threshold)
	}
	if req.ReportName != "coverage.opencover.xml" {
		t.Errorf("Unexpected report name %q", req.ReportName)
	}
	if !reflect.DeepEqual(req.Extensions, []string{"cs"}) {
		t.Errorf("Unexpected extensions %v", req.Extensions)
	}
	if req.Workers != 3 || req.OutputFormat != domain.OutputFormatJSON {
		t.Errorf("Unexpected request %+v", req)
	}
	if req.ConfigPath != path {
		t.Errorf("Expected config path %s, got %s", path, req.ConfigPath)
	}
}

func TestConfigurationLoader_LoadConfigMissing(t *testing.T) {
	isolateConfig(t)

	_, err := NewConfigurationLoader().LoadConfig("does-not-exist.yaml")
	var domainErr domain.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeConfigError {
		t.Errorf("Expected config error, got %v", err)
	}
}

func TestConfigurationLoader_LoadDefaultConfig(t *testing.T) {
	isolateConfig(t)

	req := NewConfigurationLoader().LoadDefaultConfig()
	if req.Threshold != domain.DefaultThresholdConfig() {
		t.Errorf("Expected default band, got %+v", req.Threshold)
	}
	if req.ReportName != domain.DefaultReportName {
		t.Errorf("Expected default report name, got %q", req.ReportName)
	}
	if !reflect.DeepEqual(req.Extensions, domain.DefaultSourceExtensions) {
		t.Errorf("Expected default extensions, got %v", req.Extensions)
	}
}

func TestConfigurationLoader_LoadDefaultConfigForTarget(t *testing.T) {
	dir := isolateConfig(t)
	project := filepath.Join(dir, "project")
	if err := os.MkdirAll(filepath.Join(project, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "covscan.yaml"), []byte("coverage:\n  max_threshold: 80\n"), 0644); err != nil {
		t.Fatal(err)
	}

	req := NewConfigurationLoaderForTarget(filepath.Join(project, "src")).LoadDefaultConfig()
	if req.Threshold.Max != 80 {
		t.Errorf("Expected config found upward from target, got max %g", req.Threshold.Max)
	}
}

func TestConfigurationLoader_MergeConfig(t *testing.T) {
	loader := NewConfigurationLoader()
	base := ConvertToCoverageRequest(config.DefaultConfig())
	base.Root = "/base"

	var out bytes.Buffer
	override := &domain.CoverageRequest{
		Root:             "/cli",
		Threshold:        domain.ThresholdConfig{Min: 10, Max: 60},
		Extensions:       []string{"vb"},
		RespectGitignore: true,
		Workers:          4,
		OutputFormat:     domain.OutputFormatSARIF,
		OutputWriter:     &out,
		ConfigPath:       "covscan.yaml",
	}

	merged := loader.MergeConfig(base, override)

	if merged.Root != "/cli" || merged.Threshold.Max != 60 || merged.Workers != 4 {
		t.Errorf("Override values should win: %+v", merged)
	}
	if !reflect.DeepEqual(merged.Extensions, []string{"vb"}) || !merged.RespectGitignore {
		t.Errorf("Unexpected merged request %+v", merged)
	}
	if merged.OutputFormat != domain.OutputFormatSARIF || merged.OutputWriter != &out || merged.ConfigPath != "covscan.yaml" {
		t.Errorf("Output settings not merged: %+v", merged)
	}

	// Unset override fields keep the base
	if merged.ReportName != domain.DefaultReportName {
		t.Errorf("Expected base report name, got %q", merged.ReportName)
	}
	if !reflect.DeepEqual(merged.ExcludePatterns, []string{".git"}) {
		t.Errorf("Expected base exclude patterns, got %v", merged.ExcludePatterns)
	}
	if base.Root != "/base" {
		t.Error("MergeConfig must not modify base")
	}

	kept := loader.MergeConfig(base, &domain.CoverageRequest{})
	if kept.Threshold != base.Threshold || kept.Workers != base.Workers {
		t.Errorf("Empty override should keep base, got %+v", kept)
	}
}

func TestConvertToCoverageRequest_CopiesSlices(t *testing.T) {
	cfg := config.DefaultConfig()
	req := ConvertToCoverageRequest(cfg)

	req.Extensions[0] = "changed"
	if cfg.Source.Extensions[0] == "changed" {
		t.Error("Request must not share the config's extension slice")
	}
}

func TestConfigurationLoader_ValidateConfig(t *testing.T) {
	valid := func() *domain.CoverageRequest {
		req := ConvertToCoverageRequest(config.DefaultConfig())
		return req
	}

	tests := []struct {
		name    string
		mutate  func(r *domain.CoverageRequest)
		wantErr bool
	}{
		{"defaults", func(r *domain.CoverageRequest) {}, false},
		{"NaN", func(r *domain.CoverageRequest) { r.Threshold.Min = math.NaN() }, true},
		{"negative min", func(r *domain.CoverageRequest) { r.Threshold.Min = -1 }, true},
		{"empty band", func(r *domain.CoverageRequest) { r.Threshold = domain.ThresholdConfig{Min: 40, Max: 40} }, true},
		{"blank report name", func(r *domain.CoverageRequest) { r.ReportName = "  " }, true},
		{"report path", func(r *domain.CoverageRequest) { r.ReportName = "tests/opencover.xml" }, true},
		{"no extensions", func(r *domain.CoverageRequest) { r.Extensions = nil }, true},
		{"negative workers", func(r *domain.CoverageRequest) { r.Workers = -1 }, true},
		{"bad format", func(r *domain.CoverageRequest) { r.OutputFormat = "xml" }, true},
		{"csv format", func(r *domain.CoverageRequest) { r.OutputFormat = domain.OutputFormatCSV }, false},
	}

	loader := NewConfigurationLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := loader.ValidateConfig(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
