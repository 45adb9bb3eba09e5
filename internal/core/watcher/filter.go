package watcher

import (
	"path/filepath"
	"strings"

	"constref/internal/shared/util"
)

// Filter decides which directories are watched and which file events are
// reported. Patterns are matched against base names.
type Filter struct {
	skipDirs   util.PatternSet
	skipFiles  util.PatternSet
	extensions map[string]struct{}
	names      map[string]struct{}
}

func NewFilter(excludeDirs, excludeFiles []string) (*Filter, error) {
	dirs, err := util.CompilePatterns(excludeDirs)
	if err != nil {
		return nil, err
	}
	files, err := util.CompilePatterns(excludeFiles)
	if err != nil {
		return nil, err
	}
	f := &Filter{skipDirs: dirs, skipFiles: files}
	f.Allow([]string{".rb", ".erb"}, nil)
	return f, nil
}

// Allow replaces the extension and file-name allow lists. Both are compared
// case-insensitively.
func (f *Filter) Allow(extensions, names []string) {
	f.extensions = lowerSet(extensions)
	f.names = lowerSet(names)
}

// SkipDir reports whether a directory stays unwatched. Hidden directories are
// always skipped.
func (f *Filter) SkipDir(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || f.skipDirs.MatchExact(base)
}

// Accept reports whether events for the file at path are delivered.
func (f *Filter) Accept(path string) bool {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	_, named := f.names[lower]
	_, typed := f.extensions[filepath.Ext(lower)]
	if !named && !typed {
		return false
	}
	return !f.skipFiles.MatchExact(base)
}

func lowerSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}
