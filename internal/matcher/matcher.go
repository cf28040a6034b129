// Package matcher resolves class names from coverage reports to source files on disk.
//
// The report side is keyed by the text after the last dot of the class name
// (namespaces are dropped); the filesystem side is keyed by the basename up to
// its first dot (multi-part extensions such as ".Designer.cs" are dropped).
package matcher

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ludo-technologies/covscan/internal/walker"
)

// SimpleName returns the identifier after the last dot of a qualified class name
func SimpleName(className string) string {
	return className[strings.LastIndex(className, ".")+1:]
}

// FileKey returns the basename up to its first dot. ok is false when the
// basename has no dot.
func FileKey(base string) (key string, ok bool) {
	i := strings.Index(base, ".")
	if i < 0 {
		return "", false
	}
	return base[:i], true
}

// Extension returns the text after the last dot of base
func Extension(base string) string {
	return base[strings.LastIndex(base, ".")+1:]
}

// Matcher finds source candidates for class names
type Matcher struct {
	extensions map[string]struct{}
	walkOpts   []walker.Option
	logger     *zap.SugaredLogger
}

// New creates a matcher accepting the given extensions (without the dot).
// walkOpts are applied to every tree traversal (exclusions, gitignore).
func New(extensions []string, logger *zap.SugaredLogger, walkOpts ...walker.Option) *Matcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[ext] = struct{}{}
	}
	return &Matcher{
		extensions: exts,
		walkOpts:   walkOpts,
		logger:     logger,
	}
}

// IsSourceFile reports whether base has a dot and a whitelisted extension
func (m *Matcher) IsSourceFile(base string) bool {
	if !strings.Contains(base, ".") {
		return false
	}
	_, ok := m.extensions[Extension(base)]
	return ok
}

// IsCandidate reports whether the file basename matches the class simple name
func (m *Matcher) IsCandidate(base, simpleName string) bool {
	key, ok := FileKey(base)
	return ok && key == simpleName && m.IsSourceFile(base)
}

// Match walks root and returns every candidate for className.
// Walk errors are logged and returned joined alongside the matches found in
// the readable part of the tree.
func (m *Matcher) Match(root, className string) ([]string, error) {
	simple := SimpleName(className)
	filter := walker.WithFilter(func(_ string, d fs.DirEntry) bool {
		return m.IsCandidate(d.Name(), simple)
	})

	var matches []string
	var errs []error
	for path, err := range walker.Files(root, m.options(filter)...) {
		if err != nil {
			m.logger.Warnw("cannot walk source tree", "error", err)
			errs = append(errs, err)
			continue
		}
		m.logger.Debugw("found source file", "class", className, "file", path)
		matches = append(matches, path)
	}
	return matches, errors.Join(errs...)
}

func (m *Matcher) options(extra ...walker.Option) []walker.Option {
	return append(slices.Clone(m.walkOpts), extra...)
}

// Index maps simple names to candidate files
type Index struct {
	root  string
	byKey map[string][]string
	files int
}

// BuildIndex walks root once and indexes every source file by its key.
// Walk errors are logged and returned joined; the index still holds every
// file from the readable part of the tree.
func (m *Matcher) BuildIndex(root string) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	idx := &Index{root: abs, byKey: make(map[string][]string)}
	filter := walker.WithFilter(func(_ string, d fs.DirEntry) bool {
		return m.IsSourceFile(d.Name())
	})

	var errs []error
	for path, err := range walker.Files(abs, m.options(filter)...) {
		if err != nil {
			m.logger.Warnw("cannot walk source tree", "error", err)
			errs = append(errs, err)
			continue
		}
		key, _ := FileKey(filepath.Base(path))
		idx.byKey[key] = append(idx.byKey[key], path)
		idx.files++
	}

	m.logger.Debugw("indexed source tree", "root", abs, "files", idx.files, "names", len(idx.byKey))
	return idx, errors.Join(errs...)
}

// EmptyIndex returns an index that matches nothing
func EmptyIndex(root string) *Index {
	return &Index{root: root, byKey: map[string][]string{}}
}

// Lookup returns the candidates for className in walk order
func (ix *Index) Lookup(className string) []string {
	files := ix.byKey[SimpleName(className)]
	if len(files) == 0 {
		return nil
	}
	out := make([]string, len(files))
	copy(out, files)
	return out
}

// Root returns the absolute root the index was built from
func (ix *Index) Root() string {
	return ix.root
}

// Len returns the number of indexed source files
func (ix *Index) Len() int {
	return ix.files
}
