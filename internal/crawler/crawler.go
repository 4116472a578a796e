// Package crawler enumerates the plain-text files under a directory tree.
package crawler

import (
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
)

// TextExt is the extension of indexable files, compared case-insensitively.
const TextExt = ".txt"

// Crawler walks a root directory and yields the paths of text files.
type Crawler struct {
	root    string
	exclude []string
	logger  *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithExclude skips files and directories matching any of the glob
// patterns. A pattern matches the path relative to the root or the base
// name; "dir/**" matches everything under dir.
func WithExclude(patterns ...string) Option {
	return func(c *Crawler) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// WithLogger sets the logger used to report skipped directories.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New returns a crawler rooted at root.
func New(root string, opts ...Option) *Crawler {
	c := &Crawler{root: root, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the directory the crawler walks.
func (c *Crawler) Root() string {
	return c.root
}

// IsTextFile reports whether name has the text extension.
func IsTextFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), TextExt)
}

// Paths returns the text files under the root in walk order. Each path is
// produced as the walk reaches it; breaking out of the range loop stops
// the walk. Directories that cannot be read are logged and skipped.
// A symlinked root is resolved, but symbolic links below it are never
// followed. Yielded paths keep the root as given.
func (c *Crawler) Paths() iter.Seq[string] {
	return func(yield func(string) bool) {
		walkRoot := c.root
		if resolved, err := filepath.EvalSymlinks(c.root); err == nil {
			walkRoot = resolved
		}

		_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				c.logger.Warn("crawl_skip",
					slog.String("path", path),
					slog.String("error", err.Error()))
				return nil
			}

			rel, relErr := filepath.Rel(walkRoot, path)
			if relErr != nil || rel == "." {
				return nil
			}

			if d.IsDir() {
				if c.excluded(rel) {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() || !IsTextFile(path) || c.excluded(rel) {
				return nil
			}

			if !yield(filepath.Join(c.root, rel)) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (c *Crawler) excluded(rel string) bool {
	for _, pattern := range c.exclude {
		if matchPattern(rel, pattern) {
			return true
		}
	}
	return false
}

// matchPattern matches rel against a glob, either whole or by base name.
func matchPattern(rel, pattern string) bool {
	rel = filepath.ToSlash(rel)
	pattern = filepath.ToSlash(pattern)

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	}
	if ok, _ := filepath.Match(pattern, rel); ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := filepath.Match(pattern, filepath.Base(rel))
		return ok
	}
	return false
}
