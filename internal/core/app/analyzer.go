package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"constref/internal/core/errors"
	"constref/internal/core/watcher"
	"constref/internal/engine/architecture"
	"constref/internal/shared/observability"
	"constref/internal/shared/util"
)

// Scan analyzes the whole project and replaces the graph contents with the
// result. Files that failed keep no references.
func (a *App) Scan(ctx context.Context) (ScanResult, error) {
	result, err := a.scanner.Scan(ctx)
	if err != nil {
		return result, err
	}

	seen := make(map[string]bool, len(result.References))
	for rel, refs := range result.References {
		a.Graph.SetFileReferences(rel, refs)
		seen[rel] = true
	}
	for _, rel := range a.Graph.Files() {
		if !seen[rel] {
			a.Graph.RemoveFile(rel)
		}
	}
	slog.Info("scan complete",
		"files", a.Graph.FileCount(),
		"references", len(a.Graph.References()),
		"failures", len(result.Failures),
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// ProcessFile re-extracts one file into the graph. Content identical to the
// last analyzed version is skipped; it reports whether the graph changed.
func (a *App) ProcessFile(ctx context.Context, path string) (bool, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(a.Extractor.ProjectRoot(), path)
	}
	rel := util.RelativeSlashPath(a.Extractor.ProjectRoot(), abs)

	content, err := os.ReadFile(abs)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return a.forget(rel), nil
		}
		return false, err
	}
	digest := xxhash.Sum64(content)
	if previous, ok := a.digests.Get(rel); ok && previous == digest {
		slog.Debug("skipping unchanged file", "path", rel)
		return false, nil
	}

	refs, err := a.Extractor.ReferencesFromFile(ctx, abs)
	if err != nil {
		return false, err
	}
	a.Graph.SetFileReferences(rel, refs)
	a.digests.Put(rel, digest)
	return true, nil
}

func (a *App) forget(rel string) bool {
	a.digests.Evict(rel)
	for _, known := range a.Graph.Files() {
		if known == rel {
			a.Graph.RemoveFile(rel)
			return true
		}
	}
	return false
}

// HandleChanges applies one debounced batch of watcher events. A created or
// removed file changes the expected constant layout, so the index is rebuilt
// and the project rescanned; modifications re-extract only their file.
func (a *App) HandleChanges(ctx context.Context, changes []watcher.Change) {
	structural := false
	for _, change := range changes {
		if change.Op != watcher.Modified {
			structural = true
			break
		}
	}

	if structural {
		slog.Info("project layout changed, rebuilding index", "changes", len(changes))
		a.Extractor.Reset()
		a.digests.Clear()
		if _, err := a.Scan(ctx); err != nil {
			slog.Error("rescan failed", "error", err)
		}
		return
	}

	for _, change := range changes {
		changed, err := a.ProcessFile(ctx, change.Path)
		if err != nil {
			slog.Warn("failed to process file", "path", change.Path, "error", err)
			continue
		}
		if changed {
			slog.Debug("file updated", "path", change.Path)
		}
	}
}

// Cycles returns the dependency cycles at the configured granularity.
func (a *App) Cycles() [][]string {
	return a.Graph.DetectCycles(a.Granularity())
}

// Violations evaluates the architecture rules over the current graph. It
// returns nothing when no rules are configured.
func (a *App) Violations() []architecture.Violation {
	if a.archEngine == nil {
		return nil
	}
	result := a.archEngine.Evaluate(a.Graph.References())
	observability.ArchitectureViolations.Set(float64(len(result.Violations)))
	return result.Violations
}

// ImpactReport lists the nodes that depend on Target.
type ImpactReport struct {
	Target     string   `json:"target"`
	Direct     []string `json:"direct"`
	Transitive []string `json:"transitive"`
}

// TraceChain returns the shortest dependency chain from one node to another
// at the configured granularity.
func (a *App) TraceChain(from, to string) ([]string, error) {
	chain, ok := a.Graph.FindChain(a.Granularity(), from, to)
	if !ok {
		err := errors.Newf(errors.CodeNotFound, "no dependency chain from %s to %s", from, to)
		return nil, errors.AddContext(err, errors.CtxOperation, "trace")
	}
	return chain, nil
}

// Impact reports what would be affected by changing target.
func (a *App) Impact(target string) ImpactReport {
	direct, transitive := a.Graph.Dependents(a.Granularity(), target)
	return ImpactReport{Target: target, Direct: direct, Transitive: transitive}
}
