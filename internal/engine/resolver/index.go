// Package resolver maps candidate constant names to the files the autoloading
// convention expects to define them.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"constref/internal/core/errors"
	"constref/internal/engine/ast"
	"constref/internal/shared/util"
)

// Entry is one expectation of the path convention: the file at Path should
// define the fully-qualified constant Name.
type Entry struct {
	Path string
	Name string
}

// Provider enumerates the convention's expectations for a project.
type Provider interface {
	ExpectedPaths(ctx context.Context) ([]Entry, error)
}

// AmbiguousConstantsError lists every constant claimed by more than one file.
type AmbiguousConstantsError struct {
	Conflicts map[string][]string
}

func (e *AmbiguousConstantsError) Error() string {
	var b strings.Builder
	b.WriteString("Ambiguous constant definition:")
	for _, name := range util.SortedStringKeys(e.Conflicts) {
		fmt.Fprintf(&b, "\n - %s:", name)
		for _, path := range e.Conflicts[name] {
			fmt.Fprintf(&b, "\n   - %s", path)
		}
	}
	return b.String()
}

// Index maps fully-qualified names to relative defining paths. The only way
// to obtain one is NewIndex, so every Index has passed the ambiguity check.
// It is never mutated and safe for concurrent reads.
type Index struct {
	paths map[string]string
}

// NewIndex inverts entries into a name to path index. It fails with
// CodeNotFound when there are no entries and CodeConflict, wrapping an
// *AmbiguousConstantsError, when a name has several paths.
func NewIndex(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, errors.New(errors.CodeNotFound, "could not find any ruby files")
	}
	byName := make(map[string][]string, len(entries))
	for _, entry := range entries {
		name := qualified(entry.Name)
		if !containsString(byName[name], entry.Path) {
			byName[name] = append(byName[name], entry.Path)
		}
	}

	conflicts := make(map[string][]string)
	paths := make(map[string]string, len(byName))
	for name, candidates := range byName {
		if len(candidates) > 1 {
			sorted := append([]string(nil), candidates...)
			sort.Strings(sorted)
			conflicts[name] = sorted
			continue
		}
		paths[name] = candidates[0]
	}
	if len(conflicts) > 0 {
		ambiguous := &AmbiguousConstantsError{Conflicts: conflicts}
		return nil, errors.Wrap(ambiguous, errors.CodeConflict, "ambiguous project layout")
	}
	return &Index{paths: paths}, nil
}

// Lookup returns the path expected to define the fully-qualified name.
func (i *Index) Lookup(name string) (string, bool) {
	path, ok := i.paths[qualified(name)]
	return path, ok
}

func (i *Index) Len() int {
	return len(i.paths)
}

// Names returns every indexed name in sorted order.
func (i *Index) Names() []string {
	return util.SortedStringKeys(i.paths)
}

func qualified(name string) string {
	if ast.IsQualified(name) {
		return name
	}
	return ast.RootMarker + name
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
