package app

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"

	"constref/internal/core/errors"
	"constref/internal/engine/parser"
	"constref/internal/engine/resolver"
	"constref/internal/shared/observability"
	"constref/internal/shared/util"
)

type ScanOptions struct {
	// Include globs are matched against project-relative slash paths.
	Include []string
	// ExcludeDirs globs are matched against directory base names.
	ExcludeDirs       []string
	Workers           int
	MaxFilesPerSecond float64
}

// FileFailure is a file the scan could not extract references from.
type FileFailure struct {
	Path string
	Err  error
}

type ScanResult struct {
	// References maps each analyzed project-relative path to its references.
	References map[string][]resolver.Reference
	Failures   []FileFailure
	Duration   time.Duration
}

// Scanner walks a project and extracts references from every matching file.
type Scanner struct {
	extractor   *Extractor
	parsers     *parser.Factory
	include     util.PatternSet
	excludeDirs []glob.Glob
	workers     int
	rate        float64
}

func NewScanner(extractor *Extractor, parsers *parser.Factory, opts ScanOptions) (*Scanner, error) {
	include, err := util.CompilePatterns(opts.Include)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid scan include pattern")
	}
	excludeDirs := make([]glob.Glob, 0, len(opts.ExcludeDirs))
	for _, pattern := range opts.ExcludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			err = errors.Wrap(err, errors.CodeValidationError, "invalid scan exclude dir pattern")
			return nil, errors.AddContext(err, errors.CtxPath, pattern)
		}
		excludeDirs = append(excludeDirs, g)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if parsers == nil {
		parsers = parser.NewFactory()
	}
	return &Scanner{
		extractor:   extractor,
		parsers:     parsers,
		include:     include,
		excludeDirs: excludeDirs,
		workers:     workers,
		rate:        opts.MaxFilesPerSecond,
	}, nil
}

// Files lists the project-relative paths a scan would analyze, sorted.
func (s *Scanner) Files(ctx context.Context) ([]string, error) {
	root := s.extractor.ProjectRoot()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && s.excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.parsers.IsSupportedPath(path) {
			return nil
		}
		rel := util.RelativeSlashPath(root, path)
		if !s.include.Empty() && !s.include.Match(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk project"), errors.CtxPath, root)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Scanner) excludedDir(name string) bool {
	for _, g := range s.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Scan analyzes every file Files returns.
func (s *Scanner) Scan(ctx context.Context) (ScanResult, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	return s.ScanFiles(ctx, files)
}

// ScanFiles extracts references from files with a bounded worker pool. The
// index is built before any worker starts, so a configuration error fails
// the scan instead of every file. Other per-file errors are collected.
func (s *Scanner) ScanFiles(ctx context.Context, files []string) (ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "Scanner.ScanFiles")
	defer span.End()
	span.SetAttributes(attribute.Int("constref.files", len(files)))

	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("scan").Observe(time.Since(start).Seconds())
	}()

	if _, err := s.extractor.Index(ctx); err != nil {
		span.RecordError(err)
		return ScanResult{}, err
	}

	throttle := util.NewThrottle(s.rate, s.workers)
	jobs := make(chan string)
	result := ScanResult{References: make(map[string][]resolver.Reference, len(files))}
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := min(s.workers, max(len(files), 1))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range jobs {
				refs, err := s.extractor.ReferencesFromFile(ctx, rel)
				mu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, FileFailure{Path: rel, Err: err})
				} else {
					result.References[rel] = refs
				}
				mu.Unlock()
				if err != nil {
					slog.Warn("failed to extract references", "path", rel, "error", err)
				}
			}
		}()
	}

	var sendErr error
	for _, rel := range files {
		if err := throttle.Wait(ctx); err != nil {
			sendErr = err
			break
		}
		select {
		case jobs <- rel:
		case <-ctx.Done():
			sendErr = ctx.Err()
		}
		if sendErr != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].Path < result.Failures[j].Path })
	result.Duration = time.Since(start)
	slog.Debug("scan finished",
		"files", len(result.References),
		"failures", len(result.Failures),
		"duration", result.Duration,
		"memory", util.ReadMemoryUsage(),
	)
	if sendErr != nil {
		return result, sendErr
	}
	return result, nil
}
