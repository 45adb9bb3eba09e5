package config

import (
	"os"
	"path/filepath"
	"strings"

	"constref/internal/core/errors"
)

// ProjectMarkers are checked, in order, in each directory while searching
// upwards for a project root.
var ProjectMarkers = []string{
	DefaultFile,
	"Gemfile",
	filepath.Join("config", "application.rb"),
	".git",
}

// ResolvedPaths holds the absolute locations derived from a Config.
type ResolvedPaths struct {
	ProjectRoot string
	DatabaseDir string
	DBPath      string
}

// ResolvePaths anchors the configured paths. An unset project root is
// detected from cwd.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	cwd = strings.TrimSpace(cwd)
	if cwd == "" {
		return ResolvedPaths{}, errors.New(errors.CodeValidationError, "working directory must not be empty")
	}

	var out ResolvedPaths
	if configured := strings.TrimSpace(cfg.Paths.ProjectRoot); configured != "" {
		out.ProjectRoot = ResolveRelative(cwd, configured)
	} else {
		root, err := DetectProjectRoot(cwd)
		if err != nil {
			return ResolvedPaths{}, err
		}
		out.ProjectRoot = root
	}
	out.DatabaseDir = ResolveRelative(out.ProjectRoot, cfg.Paths.DatabaseDir)
	out.DBPath = ResolveRelative(out.DatabaseDir, cfg.DB.Path)
	return out, nil
}

// ResolveRelative joins value onto base unless it is already absolute. A
// blank value resolves to base itself.
func ResolveRelative(base, value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return filepath.Clean(base)
	case filepath.IsAbs(value):
		return filepath.Clean(value)
	}
	return filepath.Join(base, value)
}

// DetectProjectRoot returns the nearest directory at or above start that
// holds one of ProjectMarkers. Without a match, start itself is the root.
func DetectProjectRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeValidationError, "resolve project root")
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for dir := abs; ; {
		if hasMarker(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

func hasMarker(dir string) bool {
	for _, marker := range ProjectMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}
