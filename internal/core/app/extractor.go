package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"constref/internal/core/errors"
	"constref/internal/engine/ast"
	"constref/internal/engine/extract"
	"constref/internal/engine/parser"
	"constref/internal/engine/resolver"
	"constref/internal/shared/observability"
	"constref/internal/shared/util"
)

// SnippetPath is the relative path reported for references found in source
// text that does not come from a file.
const SnippetPath = "<snippet>"

type ExtractorOptions struct {
	// TolerateTemplateErrors keeps the partial tree of templates whose
	// embedded Ruby does not parse on its own.
	TolerateTemplateErrors bool
}

// Extractor turns source into fully qualified references. The resolution
// index is built on first use and kept until Reset.
type Extractor struct {
	projectRoot string
	provider    resolver.Provider
	parsers     *parser.Factory
	collector   *extract.Collector
	opts        ExtractorOptions

	mu      sync.RWMutex
	session *resolver.Session
}

func NewExtractor(projectRoot string, provider resolver.Provider, parsers *parser.Factory, collector *extract.Collector, opts ExtractorOptions) (*Extractor, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve project root"), errors.CtxPath, projectRoot)
	}
	if parsers == nil {
		parsers = parser.NewFactory()
	}
	return &Extractor{
		projectRoot: root,
		provider:    provider,
		parsers:     parsers,
		collector:   collector,
		opts:        opts,
		session:     resolver.NewSession(provider),
	}, nil
}

func (e *Extractor) ProjectRoot() string {
	return e.projectRoot
}

// Reset discards the index so the next call enumerates the project again.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = resolver.NewSession(e.provider)
}

func (e *Extractor) currentSession() *resolver.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// Index returns the session's index, building and validating it on first use.
func (e *Extractor) Index(ctx context.Context) (*resolver.Index, error) {
	session := e.currentSession()
	firstBuild := !session.Built()

	index, err := session.Index(ctx)
	if firstBuild {
		if err != nil {
			observability.IndexBuildsTotal.WithLabelValues(observability.OutcomeError).Inc()
		} else {
			observability.IndexBuildsTotal.WithLabelValues(observability.OutcomeOK).Inc()
			observability.IndexEntries.Set(float64(index.Len()))
			slog.Debug("resolution index built", "constants", index.Len())
		}
	}
	return index, err
}

// ReferencesFromSource extracts references from Ruby source text.
func (e *Extractor) ReferencesFromSource(ctx context.Context, text string) ([]resolver.Reference, error) {
	ctx, span := observability.Tracer.Start(ctx, "Extractor.ReferencesFromSource")
	defer span.End()

	index, err := e.Index(ctx)
	if err != nil {
		return nil, err
	}
	ruby, err := e.parsers.ForPath("snippet.rb")
	if err != nil {
		return nil, err
	}
	root, err := ruby.Parse([]byte(text), SnippetPath)
	if err != nil {
		return nil, err
	}
	return e.resolve(index, root, SnippetPath), nil
}

// ReferencesFromFile extracts references from a file given relative to the
// project root or absolute. A missing file has no references.
func (e *Extractor) ReferencesFromFile(ctx context.Context, path string) ([]resolver.Reference, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.projectRoot, path)
	}
	abs = filepath.Clean(abs)
	rel := util.RelativeSlashPath(e.projectRoot, abs)

	ctx, span := observability.Tracer.Start(ctx, "Extractor.ReferencesFromFile",
		trace.WithAttributes(attribute.String("constref.path", rel)))
	defer span.End()

	index, err := e.Index(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(abs); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			observability.FilesProcessedTotal.WithLabelValues(observability.OutcomeSkipped).Inc()
			return []resolver.Reference{}, nil
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "stat source file"), errors.CtxPath, rel)
	}

	p, err := e.parsers.ForPath(abs)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read source file"), errors.CtxPath, rel)
	}

	start := time.Now()
	root, err := p.Parse(source, rel)
	observability.ParsingDuration.WithLabelValues(string(e.parsers.FormatOf(abs))).Observe(time.Since(start).Seconds())
	if err != nil {
		root, err = e.tolerate(root, err)
		if err != nil {
			observability.FilesProcessedTotal.WithLabelValues(observability.OutcomeError).Inc()
			span.RecordError(err)
			return nil, err
		}
	}

	refs := e.resolve(index, root, rel)
	observability.FilesProcessedTotal.WithLabelValues(observability.OutcomeOK).Inc()
	span.SetAttributes(attribute.Int("constref.references", len(refs)))
	return refs, nil
}

// tolerate keeps the partial tree of an ignorable template error.
func (e *Extractor) tolerate(root ast.Node, err error) (ast.Node, error) {
	var perr *parser.ParseError
	if !e.opts.TolerateTemplateErrors || !stderrors.As(err, &perr) || !perr.Ignorable || root == nil {
		return nil, err
	}
	slog.Warn("ignoring template parse error", "path", perr.File, "error", perr.Message)
	return root, nil
}

func (e *Extractor) resolve(index *resolver.Index, root ast.Node, rel string) []resolver.Reference {
	refs := resolver.FullyQualified(e.collector.Collect(root, rel), index)
	observability.ReferencesTotal.Add(float64(len(refs)))
	return refs
}
