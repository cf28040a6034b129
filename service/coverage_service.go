package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ludo-technologies/covscan/domain"
	"github.com/ludo-technologies/covscan/internal/matcher"
	"github.com/ludo-technologies/covscan/internal/opencover"
	"github.com/ludo-technologies/covscan/internal/version"
	"github.com/ludo-technologies/covscan/internal/walker"
)

// CoverageServiceImpl implements the CoverageService interface
type CoverageServiceImpl struct {
	logger   *zap.SugaredLogger
	parser   *opencover.Parser
	progress domain.ProgressManager
	emitter  domain.ViolationEmitter
}

// NewCoverageService creates a new coverage service. A nil logger disables logging.
func NewCoverageService(logger *zap.SugaredLogger) *CoverageServiceImpl {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CoverageServiceImpl{
		logger: logger,
		parser: opencover.NewParser(logger),
	}
}

// NewCoverageServiceWithProgress creates a new coverage service with progress reporting
func NewCoverageServiceWithProgress(logger *zap.SugaredLogger, pm domain.ProgressManager) *CoverageServiceImpl {
	s := NewCoverageService(logger)
	s.progress = pm
	return s
}

// WithEmitter forwards every violation to e, in output order, once a run completes
func (s *CoverageServiceImpl) WithEmitter(e domain.ViolationEmitter) *CoverageServiceImpl {
	s.emitter = e
	return s
}

// reportResult is the outcome of one report, stored in its own slot
type reportResult struct {
	summary    domain.ReportSummary
	violations []domain.Violation
	unmatched  int
	warnings   []string
}

// Analyze discovers every report under req.Root and emits violations for
// poorly covered classes that resolve to source files under the same root.
func (s *CoverageServiceImpl) Analyze(ctx context.Context, req domain.CoverageRequest) (*domain.CoverageResponse, error) {
	start := time.Now()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	resp := newCoverageResponse(req)
	walkOpts, warnings := s.walkOptions(req)
	resp.Warnings = append(resp.Warnings, warnings...)

	reports, walkErrs := s.DiscoverReports(req.Root, req.ReportName, walkOpts...)
	for _, err := range walkErrs {
		resp.Errors = append(resp.Errors, fmt.Sprintf("report discovery: %v", err))
	}
	resp.Summary.ReportsFound = len(reports)

	if len(reports) == 0 {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("no %s report found under %s", req.ReportName, req.Root))
		return s.finish(resp, start), nil
	}

	index, warnings := s.buildIndex(req, walkOpts)
	resp.Warnings = append(resp.Warnings, warnings...)

	if err := s.processReports(ctx, reports, index, req, resp); err != nil {
		return nil, err
	}
	return s.finish(resp, start), nil
}

// AnalyzeReport processes a single report file, matching its classes against req.Root
func (s *CoverageServiceImpl) AnalyzeReport(ctx context.Context, reportPath string, req domain.CoverageRequest) (*domain.CoverageResponse, error) {
	start := time.Now()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(reportPath)
	if err != nil {
		return nil, domain.NewInvalidInputError("invalid report path", err)
	}

	resp := newCoverageResponse(req)
	resp.Summary.ReportsFound = 1

	walkOpts, warnings := s.walkOptions(req)
	resp.Warnings = append(resp.Warnings, warnings...)

	index, warnings := s.buildIndex(req, walkOpts)
	resp.Warnings = append(resp.Warnings, warnings...)

	if err := s.processReports(ctx, []string{abs}, index, req, resp); err != nil {
		return nil, err
	}
	return s.finish(resp, start), nil
}

// DiscoverReports walks root and returns every file named reportName in walk
// order. Walk errors are logged and returned; the paths found so far are kept.
func (s *CoverageServiceImpl) DiscoverReports(root, reportName string, opts ...walker.Option) ([]string, []error) {
	opts = append(opts[:len(opts):len(opts)], walker.WithFilter(walker.BaseNameEquals(reportName)))

	var reports []string
	var errs []error
	for path, err := range walker.Files(root, opts...) {
		if err != nil {
			s.logger.Errorw("report discovery failed in subtree", "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Debugw("report discovered", "path", path)
		reports = append(reports, path)
	}
	return reports, errs
}

// processReports runs every report through the executor and merges the
// per-slot results into resp in report order
func (s *CoverageServiceImpl) processReports(
	ctx context.Context,
	reports []string,
	index *matcher.Index,
	req domain.CoverageRequest,
	resp *domain.CoverageResponse,
) error {
	results := make([]reportResult, len(reports))
	executor := NewParallelExecutor(req.Workers, s.progress)

	err := executor.Execute(ctx, reports, func(ctx context.Context, i int) error {
		results[i] = s.processReport(ctx, reports[i], index, req)
		if results[i].summary.Failed {
			return errors.New(results[i].summary.Error)
		}
		return nil
	})

	// Report failures are already in their slots; only cancellation is fatal
	var agg *AggregatedError
	if err != nil && !errors.As(err, &agg) {
		return domain.NewAnalysisError("coverage analysis cancelled", err)
	}

	for _, r := range results {
		resp.Reports = append(resp.Reports, r.summary)
		resp.Violations = append(resp.Violations, r.violations...)
		resp.Warnings = append(resp.Warnings, r.warnings...)

		resp.Summary.RecordsParsed += r.summary.RecordsParsed
		resp.Summary.AdmissibleRecords += r.summary.AdmissibleRecords
		resp.Summary.MalformedRecords += r.summary.MalformedRecords
		resp.Summary.UnmatchedRecords += r.unmatched
		if r.summary.Failed {
			resp.Summary.ReportsFailed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("[%s] %s", r.summary.Path, r.summary.Error))
		} else {
			resp.Summary.ReportsParsed++
		}
	}
	return nil
}

// processReport parses one report with a fresh state. Violations emitted
// before a parse failure are kept.
func (s *CoverageServiceImpl) processReport(ctx context.Context, path string, index *matcher.Index, req domain.CoverageRequest) reportResult {
	result := reportResult{summary: domain.ReportSummary{Path: path}}
	collector := NewViolationCollector()

	parsed, err := s.parser.ParseFile(ctx, path, func(record domain.ClassCoverageRecord) error {
		return s.handleRecord(record, path, index, req, collector, &result)
	})

	result.summary.RecordsParsed = parsed.Records
	result.summary.MalformedRecords = len(parsed.Malformed)
	for _, m := range parsed.Malformed {
		result.warnings = append(result.warnings, fmt.Sprintf("[%s] %v", path, m))
	}

	if err != nil {
		s.logger.Errorw("failed to parse report", "path", path, "error", err)
		result.summary.Failed = true
		result.summary.Error = domain.NewParseError(path, err).Error()
	}

	result.violations = collector.Violations()
	result.summary.Violations = len(result.violations)
	return result
}

// handleRecord gates one record by the threshold band and emits a violation
// per candidate source file
func (s *CoverageServiceImpl) handleRecord(
	record domain.ClassCoverageRecord,
	report string,
	index *matcher.Index,
	req domain.CoverageRequest,
	emitter domain.ViolationEmitter,
	result *reportResult,
) error {
	if !req.Threshold.Admissible(record.CoveragePercent) {
		return nil
	}
	result.summary.AdmissibleRecords++

	candidates := index.Lookup(record.ClassName)
	if len(candidates) == 0 {
		result.unmatched++
		s.logger.Debugw("no source file for class", "class", record.ClassName)
		return nil
	}

	for _, file := range candidates {
		s.logger.Debugw("candidate matched", "class", record.ClassName, "file", file)
		emitter.Emit(domain.NewCoverageViolation(file, record, req.Category, report))
	}
	return nil
}

// walkOptions builds the traversal options shared by discovery and matching
func (s *CoverageServiceImpl) walkOptions(req domain.CoverageRequest) ([]walker.Option, []string) {
	var opts []walker.Option
	var warnings []string

	if f := walker.ExcludeDirs(req.ExcludePatterns); f != nil {
		opts = append(opts, walker.WithDirFilter(f))
	}

	if req.RespectGitignore {
		gi, err := walker.LoadGitignore(req.Root)
		if err != nil {
			s.logger.Warnw("ignoring unreadable .gitignore", "root", req.Root, "error", err)
			warnings = append(warnings, fmt.Sprintf("cannot load .gitignore: %v", err))
		} else {
			opts = append(opts, walker.WithDirFilter(gi.DirFilter()), walker.WithFilter(gi.Filter()))
		}
	}
	return opts, warnings
}

// buildIndex walks the source tree once. A partial index is kept when a
// subtree cannot be read.
func (s *CoverageServiceImpl) buildIndex(req domain.CoverageRequest, walkOpts []walker.Option) (*matcher.Index, []string) {
	m := matcher.New(req.Extensions, s.logger, walkOpts...)
	index, err := m.BuildIndex(req.Root)
	if index == nil {
		// Only an unresolvable root yields no index; serve empty lookups
		index = matcher.EmptyIndex(req.Root)
	}
	if err != nil {
		return index, []string{fmt.Sprintf("source index incomplete: %v", err)}
	}
	return index, nil
}

func (s *CoverageServiceImpl) finish(resp *domain.CoverageResponse, start time.Time) *domain.CoverageResponse {
	resp.Summary.TotalViolations = len(resp.Violations)
	resp.DurationMs = time.Since(start).Milliseconds()

	if s.emitter != nil {
		for _, v := range resp.Violations {
			s.emitter.Emit(v)
		}
	}

	s.logger.Infow("coverage analysis complete",
		"reports", resp.Summary.ReportsFound,
		"failed", resp.Summary.ReportsFailed,
		"violations", resp.Summary.TotalViolations,
		"duration_ms", resp.DurationMs,
	)
	return resp
}

func newCoverageResponse(req domain.CoverageRequest) *domain.CoverageResponse {
	return &domain.CoverageResponse{
		Violations: []domain.Violation{},
		Reports:    []domain.ReportSummary{},
		Summary: domain.CoverageSummary{
			MinThreshold: req.Threshold.Min,
			MaxThreshold: req.Threshold.Max,
		},
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
		Config:      buildConfigForResponse(req),
	}
}

// buildConfigForResponse echoes the effective settings in the response
func buildConfigForResponse(req domain.CoverageRequest) map[string]interface{} {
	return map[string]interface{}{
		"root":          req.Root,
		"report_name":   req.ReportName,
		"min_threshold": req.Threshold.Min,
		"max_threshold": req.Threshold.Max,
		"extensions":    req.Extensions,
		"category":      req.Category,
		"workers":       req.Workers,
	}
}

func validateRequest(req domain.CoverageRequest) error {
	if req.Root == "" {
		return domain.NewInvalidInputError("root directory is required", nil)
	}
	if req.ReportName == "" {
		return domain.NewInvalidInputError("report name is required", nil)
	}
	if len(req.Extensions) == 0 {
		return domain.NewInvalidInputError("at least one source extension is required", nil)
	}
	if !(req.Threshold.Min < req.Threshold.Max) {
		return domain.NewInvalidInputError(
			fmt.Sprintf("invalid threshold band [%g, %g)", req.Threshold.Min, req.Threshold.Max), nil)
	}
	return nil
}
