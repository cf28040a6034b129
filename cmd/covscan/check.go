package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ludo-technologies/covscan/app"
	"github.com/ludo-technologies/covscan/domain"
	"github.com/ludo-technologies/covscan/internal/config"
	"github.com/ludo-technologies/covscan/internal/logging"
	"github.com/ludo-technologies/covscan/internal/metrics"
	"github.com/ludo-technologies/covscan/service"
)

// Exit codes of the check command
const (
	ExitOK         = 0
	ExitViolations = 1
	ExitError      = 2
)

// CheckExitError is a custom error type for check command exit codes
type CheckExitError struct {
	Code    int
	Message string
}

func (e *CheckExitError) Error() string {
	return e.Message
}

// checkOptions holds the flag values of one check invocation
type checkOptions struct {
	configPath       string
	minThreshold     float64
	maxThreshold     float64
	reportName       string
	reportFile       string
	format           string
	outputPath       string
	extensions       []string
	excludePatterns  []string
	workers          int
	respectGitignore bool
	metricsFile      string
	details          bool
	verbose          bool
	debug            bool
	noFail           bool
	noProgress       bool
}

func checkCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [root]",
		Short: "Report poorly covered classes found in coverage reports",
		Long: `Find every coverage report under root, keep the classes whose sequence
coverage lies in [min-threshold, max-threshold) and report each source file
under root whose name matches the class.

Exit codes:
  0 - No poorly covered class found (or --no-fail)
  1 - Poorly covered classes found
  2 - Analysis error (invalid configuration, unreadable root, etc.)

Examples:
  # Check the current directory with defaults ([0, 50))
  covscan check

  # Only report classes below 80% coverage
  covscan check --max-threshold 80 src/

  # Use a differently named report
  covscan check --report-name coverage.opencover.xml

  # SARIF output for code scanning
  covscan check -f sarif -o covscan.sarif .`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
		SilenceUsage:  true, // Don't print usage on errors (we handle our own output)
		SilenceErrors: true, // Don't print error messages (we handle our own output)
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Path to config file")
	flags.Float64Var(&opts.minThreshold, "min-threshold", config.DefaultMinThreshold,
		"Inclusive lower coverage bound, in percent")
	flags.Float64Var(&opts.maxThreshold, "max-threshold", config.DefaultMaxThreshold,
		"Exclusive upper coverage bound, in percent")
	flags.StringVar(&opts.reportName, "report-name", config.DefaultReportName,
		"File name identifying coverage reports")
	flags.StringVar(&opts.reportFile, "report", "",
		"Analyze this single report file instead of discovering reports")
	flags.StringVarP(&opts.format, "format", "f", config.DefaultOutputFormat,
		"Output format: text, json, yaml, sarif, csv")
	flags.StringVarP(&opts.outputPath, "output", "o", "",
		"Write the report to this file instead of stdout")
	flags.StringSliceVar(&opts.extensions, "extensions", nil,
		"Source file extensions to match, without the dot (default cs,fs,vb,asp,aspx)")
	flags.StringSliceVar(&opts.excludePatterns, "exclude", nil,
		"Directory names or globs to skip (default .git)")
	flags.IntVar(&opts.workers, "workers", config.DefaultWorkers,
		"Reports processed concurrently (0 = number of CPUs)")
	flags.BoolVar(&opts.respectGitignore, "respect-gitignore", false,
		"Skip paths ignored by the root .gitignore")
	flags.StringVar(&opts.metricsFile, "metrics-file", "",
		"Write Prometheus metrics for this run to a textfile")
	flags.BoolVar(&opts.details, "details", false,
		"Show per-report statistics in text output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Log progress information")
	flags.BoolVar(&opts.debug, "debug", false,
		"Log every parsed record and match")
	flags.BoolVar(&opts.noFail, "no-fail", false,
		"Exit 0 even when violations are found")
	flags.BoolVar(&opts.noProgress, "no-progress", false,
		"Disable the progress bar")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	// Load configuration
	cfg, err := config.LoadConfigWithTarget(opts.configPath, root)
	if err != nil {
		return &CheckExitError{Code: ExitError, Message: fmt.Sprintf("failed to load configuration: %v", err)}
	}

	applyCheckFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return &CheckExitError{Code: ExitError, Message: fmt.Sprintf("invalid configuration: %v", err)}
	}

	logger, err := logging.New(logLevel(cfg, opts))
	if err != nil {
		return &CheckExitError{Code: ExitError, Message: err.Error()}
	}
	defer func() { _ = logger.Sync() }()

	req := service.ConvertToCoverageRequest(cfg)
	req.Root = root
	req.ConfigPath = opts.configPath
	req.OutputWriter = cmd.OutOrStdout()

	// Progress goes to stderr; keep it away from CI logs and piped output
	pm := service.NewProgressManager(!opts.noProgress && !opts.debug)
	defer pm.Close()

	resp, err := executeCheck(cmd, logger, pm, opts, *req)
	if err != nil {
		return &CheckExitError{Code: ExitError, Message: err.Error()}
	}

	if cfg.Metrics.Textfile != "" {
		recorder := metrics.NewRecorder()
		recorder.Observe(resp)
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return &CheckExitError{Code: ExitError, Message: fmt.Sprintf("failed to write metrics: %v", err)}
		}
		logger.Infow("metrics written", "path", cfg.Metrics.Textfile)
	}

	if req.OutputPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", req.OutputPath)
	}

	if resp.HasViolations() && !opts.noFail {
		return &CheckExitError{Code: ExitViolations, Message: ""}
	}
	return nil
}

func executeCheck(
	cmd *cobra.Command,
	logger *zap.SugaredLogger,
	pm domain.ProgressManager,
	opts *checkOptions,
	req domain.CoverageRequest,
) (*domain.CoverageResponse, error) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	svc := service.NewCoverageServiceWithProgress(logger, pm)
	formatter := service.NewOutputFormatterWithBase(req.Root).WithDetails(req.ShowDetails)

	uc, err := app.NewCoverageUseCaseBuilder().
		WithService(svc).
		WithFormatter(formatter).
		Build()
	if err != nil {
		return nil, err
	}

	if opts.reportFile != "" {
		return uc.AnalyzeReport(ctx, opts.reportFile, req)
	}
	return uc.Execute(ctx, req)
}

// applyCheckFlags overrides config values with flags set on the command line
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config, opts *checkOptions) {
	flags := cmd.Flags()

	if flags.Changed("min-threshold") {
		cfg.Coverage.MinThreshold = opts.minThreshold
	}
	if flags.Changed("max-threshold") {
		cfg.Coverage.MaxThreshold = opts.maxThreshold
	}
	if flags.Changed("report-name") {
		cfg.Coverage.ReportName = opts.reportName
	}
	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if flags.Changed("output") {
		cfg.Output.Path = opts.outputPath
	}
	if flags.Changed("details") {
		cfg.Output.ShowDetails = opts.details
	}
	if flags.Changed("extensions") {
		cfg.Source.Extensions = opts.extensions
	}
	if flags.Changed("exclude") {
		cfg.Analysis.ExcludePatterns = opts.excludePatterns
	}
	if flags.Changed("workers") {
		cfg.Analysis.Workers = opts.workers
	}
	if flags.Changed("respect-gitignore") {
		cfg.Analysis.RespectGitignore = opts.respectGitignore
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = opts.metricsFile
	}
}

// logLevel picks the most verbose of the flags and the configured level
func logLevel(cfg *config.Config, opts *checkOptions) string {
	switch {
	case opts.debug:
		return logging.LevelDebug
	case opts.verbose:
		return logging.LevelInfo
	default:
		return cfg.Logging.Level
	}
}
