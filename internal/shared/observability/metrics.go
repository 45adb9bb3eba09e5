package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "constref_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	FilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constref_files_processed_total",
		Help: "Files run through reference extraction, by outcome.",
	}, []string{"outcome"})

	ReferencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "constref_references_total",
		Help: "Fully qualified references produced by extraction.",
	})

	IndexEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "constref_index_entries",
		Help: "Constants in the current resolution index.",
	})

	IndexBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constref_index_builds_total",
		Help: "Resolution index builds, by outcome.",
	}, []string{"outcome"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "constref_graph_nodes_total",
		Help: "Total number of nodes in the reference graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "constref_graph_edges_total",
		Help: "Total number of edges in the reference graph.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "constref_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "constref_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ArchitectureViolations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "constref_architecture_violations",
		Help: "Layer rule violations found by the last analysis.",
	})
)

// Outcome labels for FilesProcessedTotal and IndexBuildsTotal.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)
