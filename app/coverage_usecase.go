package app

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/ludo-technologies/covscan/domain"
)

// CoverageUseCase orchestrates the coverage analysis workflow
type CoverageUseCase struct {
	service    domain.CoverageService
	formatter  domain.OutputFormatter
	fileHelper *FileHelper
}

// NewCoverageUseCase creates a new coverage use case
func NewCoverageUseCase(service domain.CoverageService, formatter domain.OutputFormatter) *CoverageUseCase {
	return &CoverageUseCase{
		service:    service,
		formatter:  formatter,
		fileHelper: NewFileHelper(),
	}
}

// Execute performs the complete coverage analysis workflow: it resolves the
// root, runs the analysis and writes the formatted result
func (uc *CoverageUseCase) Execute(ctx context.Context, req domain.CoverageRequest) (*domain.CoverageResponse, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	root, err := uc.fileHelper.ResolveRoot(req.Root)
	if err != nil {
		return nil, domain.NewFileNotFoundError(req.Root, err)
	}
	req.Root = root

	response, err := uc.service.Analyze(ctx, req)
	if err != nil {
		return nil, domain.NewAnalysisError("coverage analysis failed", err)
	}

	if err := uc.writeOutput(response, req); err != nil {
		return response, err
	}
	return response, nil
}

// AnalyzeReport analyzes a single report file against req.Root
func (uc *CoverageUseCase) AnalyzeReport(ctx context.Context, reportPath string, req domain.CoverageRequest) (*domain.CoverageResponse, error) {
	exists, err := uc.fileHelper.FileExists(reportPath)
	if err != nil {
		return nil, domain.NewFileNotFoundError(reportPath, err)
	}
	if !exists {
		return nil, domain.NewFileNotFoundError(reportPath, fmt.Errorf("file does not exist"))
	}

	root, err := uc.fileHelper.ResolveRoot(req.Root)
	if err != nil {
		return nil, domain.NewFileNotFoundError(req.Root, err)
	}
	req.Root = root

	response, err := uc.service.AnalyzeReport(ctx, reportPath, req)
	if err != nil {
		return nil, domain.NewAnalysisError("coverage analysis failed", err)
	}

	if err := uc.writeOutput(response, req); err != nil {
		return response, err
	}
	return response, nil
}

// writeOutput writes to OutputPath when set, otherwise to OutputWriter.
// With neither set nothing is written.
func (uc *CoverageUseCase) writeOutput(response *domain.CoverageResponse, req domain.CoverageRequest) error {
	if uc.formatter == nil {
		return nil
	}

	var writer io.Writer = req.OutputWriter
	if req.OutputPath != "" {
		f, err := uc.fileHelper.CreateOutputFile(req.OutputPath)
		if err != nil {
			return domain.NewOutputError("failed to create output file", err)
		}
		defer f.Close()
		writer = f
	}
	if writer == nil {
		return nil
	}

	return uc.formatter.Write(response, req.OutputFormat, writer)
}

// validateRequest validates the coverage request
func (uc *CoverageUseCase) validateRequest(req domain.CoverageRequest) error {
	if req.ReportName == "" {
		return fmt.Errorf("report name is required")
	}

	if math.IsNaN(req.Threshold.Min) || math.IsNaN(req.Threshold.Max) {
		return fmt.Errorf("thresholds must be numbers")
	}

	if req.Threshold.Min < 0 {
		return fmt.Errorf("minimum threshold cannot be negative")
	}

	if req.Threshold.Max <= req.Threshold.Min {
		return fmt.Errorf("maximum threshold must be greater than minimum threshold")
	}

	if len(req.Extensions) == 0 {
		return fmt.Errorf("no source extensions specified")
	}

	if req.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}

	return nil
}

// CoverageUseCaseBuilder provides a builder pattern for creating CoverageUseCase
type CoverageUseCaseBuilder struct {
	service    domain.CoverageService
	formatter  domain.OutputFormatter
	fileHelper *FileHelper
}

// NewCoverageUseCaseBuilder creates a new builder
func NewCoverageUseCaseBuilder() *CoverageUseCaseBuilder {
	return &CoverageUseCaseBuilder{}
}

// WithService sets the coverage service
func (b *CoverageUseCaseBuilder) WithService(service domain.CoverageService) *CoverageUseCaseBuilder {
	b.service = service
	return b
}

// WithFormatter sets the output formatter
func (b *CoverageUseCaseBuilder) WithFormatter(formatter domain.OutputFormatter) *CoverageUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithFileHelper sets the file helper
func (b *CoverageUseCaseBuilder) WithFileHelper(fileHelper *FileHelper) *CoverageUseCaseBuilder {
	b.fileHelper = fileHelper
	return b
}

// Build creates the CoverageUseCase with the configured dependencies
func (b *CoverageUseCaseBuilder) Build() (*CoverageUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("coverage service is required")
	}

	uc := &CoverageUseCase{
		service:    b.service,
		formatter:  b.formatter,
		fileHelper: b.fileHelper,
	}

	if uc.fileHelper == nil {
		uc.fileHelper = NewFileHelper()
	}

	return uc, nil
}
