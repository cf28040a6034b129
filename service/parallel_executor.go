package service

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/covscan/domain"
)

// TaskError represents a single report failure
type TaskError struct {
	TaskName string
	Err      error
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects all task failures
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d tasks failed:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the first error for errors.Is/As compatibility
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// ParallelExecutor runs one task per report with bounded concurrency.
// A failing task never cancels its siblings.
type ParallelExecutor struct {
	maxConcurrency int
	progress       domain.ProgressManager
}

// NewParallelExecutor creates an executor. workers <= 0 uses runtime.NumCPU().
func NewParallelExecutor(workers int, pm domain.ProgressManager) *ParallelExecutor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ParallelExecutor{
		maxConcurrency: workers,
		progress:       pm,
	}
}

// MaxConcurrency returns the concurrency limit
func (e *ParallelExecutor) MaxConcurrency() int {
	return e.maxConcurrency
}

// Execute calls run(ctx, i) for every name. Each task writes only its own
// slot, so callers may store results by index without locking.
func (e *ParallelExecutor) Execute(ctx context.Context, names []string, run func(ctx context.Context, i int) error) error {
	if len(names) == 0 {
		return nil
	}

	var task domain.TaskProgress = &NoOpTaskProgress{}
	if e.progress != nil {
		task = e.progress.StartTask("Processing reports", len(names))
	}
	defer task.Complete()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)

	var errMu sync.Mutex
	taskErrors := make([]*TaskError, len(names))

	for i, name := range names {
		// Stop scheduling once the caller cancelled
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}

			err := run(gCtx, i)

			errMu.Lock()
			task.Describe(filepath.Base(filepath.Dir(name)))
			task.Increment(1)
			if err != nil {
				taskErrors[i] = &TaskError{TaskName: name, Err: err}
			}
			errMu.Unlock()

			// Errors are collected rather than returned so siblings keep running
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var agg AggregatedError
	for _, te := range taskErrors {
		if te != nil {
			agg.Errors = append(agg.Errors, *te)
		}
	}
	if len(agg.Errors) > 0 {
		return &agg
	}
	return nil
}
