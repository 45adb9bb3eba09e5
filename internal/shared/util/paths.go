// Package util holds the path, glob, cache and rate helpers shared by the
// engine and the app.
package util

import (
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// NormalizePatternPath turns a user-supplied path into the form patterns are
// matched against: slash separated and cleaned, with the project root as "".
func NormalizePatternPath(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), `\`, "/")
	if s == "" {
		return ""
	}
	clean := path.Clean(s)
	if clean == "." {
		return ""
	}
	return clean
}

// HasPathPrefix reports whether p is prefix or lies below it. The empty
// prefix only matches the root itself.
func HasPathPrefix(p, prefix string) bool {
	p, prefix = NormalizePatternPath(p), NormalizePatternPath(prefix)
	if prefix == "" {
		return p == ""
	}
	rest, ok := strings.CutPrefix(p, prefix)
	return ok && (rest == "" || rest[0] == '/')
}

// RelativeSlashPath expresses target relative to the absolute root. Relative
// targets are taken as already project-relative; targets outside root keep
// their absolute form.
func RelativeSlashPath(root, target string) string {
	if !filepath.IsAbs(target) {
		return NormalizePatternPath(target)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || escapesRoot(rel) {
		return filepath.ToSlash(filepath.Clean(target))
	}
	return NormalizePatternPath(filepath.ToSlash(rel))
}

func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func SortedStringKeys[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}
