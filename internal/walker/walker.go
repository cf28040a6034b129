// Package walker produces lazy, restartable sequences of regular files under a root directory.
package walker

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// Predicate decides whether a regular file is yielded
type Predicate func(path string, d fs.DirEntry) bool

// DirFilter decides whether a directory is pruned. Returning true skips it.
type DirFilter func(path string, d fs.DirEntry) bool

// WalkError reports an I/O failure on a single entry of the traversal
type WalkError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying I/O error
func (e *WalkError) Unwrap() error {
	return e.Err
}

type options struct {
	filters    []Predicate
	dirFilters []DirFilter
}

// Option configures a traversal
type Option func(*options)

// WithFilter keeps only files accepted by p. Several filters are ANDed.
func WithFilter(p Predicate) Option {
	return func(o *options) {
		if p != nil {
			o.filters = append(o.filters, p)
		}
	}
}

// WithDirFilter prunes directories accepted by f. Several filters are ORed.
func WithDirFilter(f DirFilter) Option {
	return func(o *options) {
		if f != nil {
			o.dirFilters = append(o.dirFilters, f)
		}
	}
}

func (o *options) keep(path string, d fs.DirEntry) bool {
	for _, p := range o.filters {
		if !p(path, d) {
			return false
		}
	}
	return true
}

func (o *options) prune(path string, d fs.DirEntry) bool {
	for _, f := range o.dirFilters {
		if f(path, d) {
			return true
		}
	}
	return false
}

// Files returns the absolute paths of regular files beneath root.
//
// Nothing is read until the sequence is ranged over, and every range performs
// a fresh traversal. I/O errors are yielded as *WalkError with an empty-path
// value; the traversal then continues with the next entry, so the consumer
// decides whether to stop (break) or carry on. Symbolic links to regular
// files are yielded, links to directories are not followed.
func Files(root string, opts ...Option) iter.Seq2[string, error] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return func(yield func(string, error) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield("", &WalkError{Path: root, Err: err})
			return
		}

		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield("", &WalkError{Path: path, Err: err}) {
					return filepath.SkipAll
				}
				return nil
			}

			if d.IsDir() {
				if path != absRoot && o.prune(path, d) {
					return filepath.SkipDir
				}
				return nil
			}

			if !isRegular(path, d) || !o.keep(path, d) {
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Collect drains seq, returning the files and the errors it produced
func Collect(seq iter.Seq2[string, error]) ([]string, []error) {
	var files []string
	var errs []error
	for path, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, path)
	}
	return files, errs
}

// isRegular reports whether d is a regular file, following symlinks
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
