package walker

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// BaseNameEquals keeps files whose basename is exactly name
func BaseNameEquals(name string) Predicate {
	return func(_ string, d fs.DirEntry) bool {
		return d.Name() == name
	}
}

// ExcludeDirs prunes directories whose name equals, or glob-matches, any pattern
func ExcludeDirs(patterns []string) DirFilter {
	if len(patterns) == 0 {
		return nil
	}
	return func(_ string, d fs.DirEntry) bool {
		name := d.Name()
		for _, pattern := range patterns {
			if pattern == name {
				return true
			}
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
		}
		return false
	}
}

// Gitignore applies the .gitignore found at the root of a tree
type Gitignore struct {
	root    string
	matcher *ignore.GitIgnore
}

// LoadGitignore compiles root/.gitignore. A missing file yields a Gitignore
// that ignores nothing.
func LoadGitignore(root string) (*Gitignore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	g := &Gitignore{root: absRoot}
	matcher, err := ignore.CompileIgnoreFile(filepath.Join(absRoot, ".gitignore"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return g, nil
		}
		return nil, err
	}
	g.matcher = matcher
	return g, nil
}

// Ignored reports whether the absolute path is ignored
func (g *Gitignore) Ignored(path string, isDir bool) bool {
	if g == nil || g.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(g.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		// directory-only patterns ("build/") only match with a trailing slash
		return g.matcher.MatchesPath(rel) || g.matcher.MatchesPath(rel+"/")
	}
	return g.matcher.MatchesPath(rel)
}

// DirFilter prunes ignored directories
func (g *Gitignore) DirFilter() DirFilter {
	return func(path string, _ fs.DirEntry) bool {
		return g.Ignored(path, true)
	}
}

// Filter keeps files that are not ignored
func (g *Gitignore) Filter() Predicate {
	return func(path string, _ fs.DirEntry) bool {
		return !g.Ignored(path, false)
	}
}
