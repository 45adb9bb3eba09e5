package util

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// PatternSet matches project-relative paths against glob patterns. Patterns
// without wildcards match the path itself and everything below it.
type PatternSet struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	raw        string
	isWildcard bool
	glob       glob.Glob
}

func CompilePatterns(raw []string) (PatternSet, error) {
	out := PatternSet{patterns: make([]compiledPattern, 0, len(raw))}
	for _, pattern := range raw {
		norm := NormalizePatternPath(pattern)
		if norm == "" {
			continue
		}
		cp := compiledPattern{
			raw:        norm,
			isWildcard: strings.ContainsAny(norm, "*?[]{}"),
		}
		if cp.isWildcard {
			g, err := glob.Compile(norm, '/')
			if err != nil {
				return PatternSet{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			cp.glob = g
		}
		out.patterns = append(out.patterns, cp)
	}
	return out, nil
}

// MustCompilePatterns is CompilePatterns for built-in pattern lists.
func MustCompilePatterns(raw ...string) PatternSet {
	set, err := CompilePatterns(raw)
	if err != nil {
		panic(err)
	}
	return set
}

func (s PatternSet) Empty() bool {
	return len(s.patterns) == 0
}

func (s PatternSet) Match(relPath string) bool {
	norm := NormalizePatternPath(relPath)
	for _, p := range s.patterns {
		if p.isWildcard {
			if p.glob.Match(norm) {
				return true
			}
			continue
		}
		if HasPathPrefix(norm, p.raw) {
			return true
		}
	}
	return false
}

// MatchExact is Match without the prefix rule for literal patterns.
func (s PatternSet) MatchExact(relPath string) bool {
	norm := NormalizePatternPath(relPath)
	for _, p := range s.patterns {
		if p.isWildcard && p.glob.Match(norm) || !p.isWildcard && p.raw == norm {
			return true
		}
	}
	return false
}

// Patterns returns the normalized source patterns.
func (s PatternSet) Patterns() []string {
	out := make([]string, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.raw)
	}
	return out
}
