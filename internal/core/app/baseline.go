package app

import (
	"context"
	"path/filepath"

	"constref/internal/core/errors"
	"constref/internal/data/history"
)

type BaselineComparison struct {
	Baseline history.Run
	Diff     history.Diff
}

func (a *App) projectKey() string {
	return filepath.Base(a.Extractor.ProjectRoot())
}

func (a *App) requireHistory() error {
	if a.history == nil {
		return errors.AddContext(errors.New(errors.CodeValidationError, "history store is disabled"), errors.CtxSection, "db")
	}
	return nil
}

// SaveRun stores the current graph as a new run.
func (a *App) SaveRun(ctx context.Context) (history.Run, error) {
	if err := a.requireHistory(); err != nil {
		return history.Run{}, err
	}
	return a.history.SaveRun(ctx, history.Run{
		ProjectKey:     a.projectKey(),
		FileCount:      a.Graph.FileCount(),
		ViolationCount: len(a.Violations()),
		CycleCount:     len(a.Cycles()),
	}, a.Graph.References())
}

// CompareBaseline diffs the current graph against the latest saved run.
func (a *App) CompareBaseline(ctx context.Context) (BaselineComparison, error) {
	if err := a.requireHistory(); err != nil {
		return BaselineComparison{}, err
	}
	baseline, err := a.history.LatestRun(ctx, a.projectKey())
	if err != nil {
		return BaselineComparison{}, err
	}
	refs, err := a.history.LoadReferences(ctx, baseline.ID)
	if err != nil {
		return BaselineComparison{}, err
	}
	return BaselineComparison{
		Baseline: baseline,
		Diff:     history.DiffReferences(refs, a.Graph.References()),
	}, nil
}
