package autoload

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"constref/internal/core/errors"
	"constref/internal/engine/ast"
	"constref/internal/engine/resolver"
	"constref/internal/shared/util"
)

// Options configures which directories are autoloaded.
type Options struct {
	// Roots are project-relative directory globs, e.g. "components/*/app/*".
	Roots []string
	// Ignore excludes directories and files, including whole roots.
	Ignore []string
	// Collapse lists directories that do not add a namespace segment.
	Collapse []string
}

// Loader enumerates the (file, constant) pairs the convention expects. It
// implements resolver.Provider.
type Loader struct {
	projectRoot string
	roots       []string
	ignore      util.PatternSet
	collapse    util.PatternSet
	inflector   *Inflector
}

var _ resolver.Provider = (*Loader)(nil)

func NewLoader(projectRoot string, opts Options, inflector *Inflector) (*Loader, error) {
	if inflector == nil {
		inflector = NewInflector(nil)
	}
	ignore, err := util.CompilePatterns(opts.Ignore)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid autoload ignore pattern")
	}
	collapse, err := util.CompilePatterns(opts.Collapse)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid autoload collapse pattern")
	}
	for _, pattern := range opts.Roots {
		for _, segment := range strings.Split(util.NormalizePatternPath(pattern), "/") {
			if _, err := glob.Compile(segment); err != nil {
				err = errors.Wrap(err, errors.CodeValidationError, "invalid autoload root pattern")
				return nil, errors.AddContext(err, errors.CtxPath, pattern)
			}
		}
	}
	return &Loader{
		projectRoot: projectRoot,
		roots:       append([]string(nil), opts.Roots...),
		ignore:      ignore,
		collapse:    collapse,
		inflector:   inflector,
	}, nil
}

// RootDirs expands the root globs against the file system and returns the
// existing, non-ignored root directories relative to the project, sorted.
func (l *Loader) RootDirs() ([]string, error) {
	seen := make(map[string]bool)
	for _, pattern := range l.roots {
		norm := util.NormalizePatternPath(pattern)
		if norm == "" {
			continue
		}
		dirs, err := l.expand(strings.Split(norm, "/"))
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if !l.ignore.Match(dir) {
				seen[dir] = true
			}
		}
	}
	return util.SortedStringKeys(seen), nil
}

// expand resolves one glob segment at a time so only matching directories
// are ever listed.
func (l *Loader) expand(segments []string) ([]string, error) {
	current := []string{""}
	for _, segment := range segments {
		var next []string
		wildcard := strings.ContainsAny(segment, "*?[]{}")
		var g glob.Glob
		if wildcard {
			g = glob.MustCompile(segment)
		}
		for _, base := range current {
			if !wildcard {
				candidate := path.Join(base, segment)
				if info, err := os.Stat(l.abs(candidate)); err == nil && info.IsDir() {
					next = append(next, candidate)
				}
				continue
			}
			entries, err := os.ReadDir(l.abs(base))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, errors.Wrap(err, errors.CodeInternal, "list autoload root candidates")
			}
			for _, entry := range entries {
				if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") && g.Match(entry.Name()) {
					next = append(next, path.Join(base, entry.Name()))
				}
			}
		}
		current = next
	}
	return current, nil
}

func (l *Loader) abs(rel string) string {
	if rel == "" {
		return l.projectRoot
	}
	return filepath.Join(l.projectRoot, filepath.FromSlash(rel))
}

// ExpectedPaths walks every root and maps each .rb file to its constant.
// Roots nested inside other roots are walked on their own and contribute
// top-level constants.
func (l *Loader) ExpectedPaths(ctx context.Context) ([]resolver.Entry, error) {
	roots, err := l.RootDirs()
	if err != nil {
		return nil, err
	}
	isRoot := make(map[string]bool, len(roots))
	for _, root := range roots {
		isRoot[root] = true
	}

	var entries []resolver.Entry
	for _, root := range roots {
		found, err := l.walkRoot(ctx, root, isRoot)
		if err != nil {
			return nil, err
		}
		entries = append(entries, found...)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (l *Loader) walkRoot(ctx context.Context, root string, isRoot map[string]bool) ([]resolver.Entry, error) {
	var entries []resolver.Entry
	err := filepath.WalkDir(l.abs(root), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := util.RelativeSlashPath(l.projectRoot, p)
		if d.IsDir() {
			if rel == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || isRoot[rel] || l.ignore.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".rb") || strings.HasPrefix(d.Name(), ".") || l.ignore.Match(rel) {
			return nil
		}
		name, ok := l.constantFor(root, rel)
		if !ok {
			slog.Warn("skipping file with no valid constant name", "path", rel)
			return nil
		}
		entries = append(entries, resolver.Entry{Path: rel, Name: name})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk autoload root"), errors.CtxPath, root)
	}
	return entries, nil
}

// constantFor derives the constant for rel, a .rb file below root.
func (l *Loader) constantFor(root, rel string) (string, bool) {
	inside := strings.TrimPrefix(strings.TrimPrefix(rel, root), "/")
	dirs := strings.Split(path.Dir(inside), "/")
	segments := make([]string, 0, len(dirs)+1)
	current := root
	for _, dir := range dirs {
		if dir == "." || dir == "" {
			continue
		}
		current = path.Join(current, dir)
		if l.collapse.MatchExact(current) {
			continue
		}
		segments = append(segments, l.inflector.Camelize(dir))
	}
	segments = append(segments, l.inflector.Camelize(strings.TrimSuffix(path.Base(inside), ".rb")))
	for _, segment := range segments {
		if !IsConstantName(segment) {
			return "", false
		}
	}
	return ast.Qualify(nil, strings.Join(segments, ast.RootMarker)), true
}
