package app

import (
	"context"
	"fmt"
	"time"

	"constref/internal/shared/observability"
)

// HealthService reports the state of the graph, the constant index and the
// history store on the observability server's /health endpoint.
type HealthService struct {
	app *App
}

var _ observability.HealthChecker = (*HealthService)(nil)

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// probe returns a component summary and whether the component is healthy.
type probe func(ctx context.Context) (string, bool)

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	probes := map[string]probe{
		"graph": s.graph,
		"index": s.index,
	}
	if s.app.history != nil || s.app.Config.DB.Enabled {
		probes["history"] = s.historyStore
	}

	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string, len(probes)),
	}
	for name, check := range probes {
		summary, healthy := check(ctx)
		status.Components[name] = summary
		if !healthy {
			status.Status = "degraded"
		}
	}
	return status
}

func (s *HealthService) graph(context.Context) (string, bool) {
	g := s.app.Graph
	if g == nil {
		return "missing", false
	}
	return fmt.Sprintf("ok (%d files, %d references)", g.FileCount(), len(g.References())), true
}

// index never triggers a build; a probe must not walk the project.
func (s *HealthService) index(ctx context.Context) (string, bool) {
	if !s.app.Extractor.currentSession().Built() {
		return "not built", true
	}
	idx, err := s.app.Extractor.Index(ctx)
	if err != nil {
		return "error: " + err.Error(), false
	}
	return fmt.Sprintf("ok (%d constants)", idx.Len()), true
}

func (s *HealthService) historyStore(context.Context) (string, bool) {
	if s.app.history == nil {
		return "missing but enabled in config", false
	}
	return "ok", true
}
