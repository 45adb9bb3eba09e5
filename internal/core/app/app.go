// Package app wires the reference engine into a running project analysis:
// scanning, watching, history and reports.
package app

import (
	"log/slog"
	"sync"

	"constref/internal/core/config"
	"constref/internal/core/watcher"
	"constref/internal/data/history"
	"constref/internal/engine/architecture"
	"constref/internal/engine/autoload"
	"constref/internal/engine/extract"
	"constref/internal/engine/graph"
	"constref/internal/engine/parser"
	"constref/internal/shared/util"
)

const digestCacheSize = 4096

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	Extractor *Extractor
	Graph     *graph.Graph

	parsers    *parser.Factory
	loader     *autoload.Loader
	scanner    *Scanner
	archEngine *architecture.Engine
	history    *history.Store

	// digests holds the content hash of every analyzed file so unchanged
	// files are skipped on watch events.
	digests *util.LRUCache[string, uint64]

	// configMu guards the sections ApplyConfig replaces.
	configMu sync.RWMutex

	watcherMu     sync.Mutex
	activeWatcher *watcher.Watcher
}

// New builds an App for the project at paths.ProjectRoot.
func New(cfg *config.Config, paths config.ResolvedPaths) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	inflector := autoload.NewInflector(cfg.Autoload.Inflections)
	loader, err := autoload.NewLoader(paths.ProjectRoot, autoload.Options{
		Roots:    cfg.Autoload.Roots,
		Ignore:   cfg.Autoload.Ignore,
		Collapse: cfg.Autoload.Collapse,
	}, inflector)
	if err != nil {
		return nil, err
	}

	inspectors := []extract.Inspector{extract.ConstInspector{}}
	if cfg.Inspectors.Associations.IsEnabled() {
		associations, err := extract.NewAssociationInspector(
			inflector,
			cfg.Inspectors.Associations.Custom,
			cfg.Inspectors.Associations.ExcludedFiles,
		)
		if err != nil {
			return nil, err
		}
		inspectors = append(inspectors, associations)
	}

	parsers := parser.NewFactory()
	extractor, err := NewExtractor(paths.ProjectRoot, loader, parsers, extract.NewCollector(inspectors...), ExtractorOptions{
		TolerateTemplateErrors: cfg.Parser.TemplateErrorsTolerated(),
	})
	if err != nil {
		return nil, err
	}

	scanner, err := NewScanner(extractor, parsers, ScanOptions{
		Include:           cfg.Scan.Include,
		ExcludeDirs:       cfg.Scan.ExcludeDirs,
		Workers:           cfg.Scan.Workers,
		MaxFilesPerSecond: cfg.Scan.MaxFilesPerSecond,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Paths:     paths,
		Extractor: extractor,
		Graph:     graph.NewGraph(),
		parsers:   parsers,
		loader:    loader,
		scanner:   scanner,
		digests:   util.NewLRUCache[string, uint64](digestCacheSize),
	}

	if cfg.Architecture.Enabled {
		a.archEngine, err = architecture.NewEngine(architectureLayers(cfg.Architecture), architectureRules(cfg.Architecture))
		if err != nil {
			return nil, err
		}
	}

	if cfg.DB.Enabled {
		a.history, err = history.Open(paths.DBPath, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		slog.Debug("history store opened", "path", a.history.Path())
	}
	return a, nil
}

// Close stops the watcher and releases the history store.
func (a *App) Close() error {
	a.watcherMu.Lock()
	w := a.activeWatcher
	a.activeWatcher = nil
	a.watcherMu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			slog.Warn("failed to close watcher", "error", err)
		}
	}
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

func (a *App) History() *history.Store {
	return a.history
}

func (a *App) outputConfig() config.Output {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.Config.Output
}

func (a *App) Granularity() graph.Granularity {
	if a.outputConfig().Granularity == config.GranularityComponent {
		return graph.ByComponent
	}
	return graph.ByFile
}

func architectureLayers(arch config.Architecture) []architecture.Layer {
	layers := make([]architecture.Layer, 0, len(arch.Layers))
	for _, layer := range arch.Layers {
		layers = append(layers, architecture.Layer{Name: layer.Name, Paths: layer.Paths})
	}
	return layers
}

func architectureRules(arch config.Architecture) []architecture.Rule {
	rules := make([]architecture.Rule, 0, len(arch.Rules))
	for _, rule := range arch.Rules {
		rules = append(rules, architecture.Rule{Name: rule.Name, From: rule.From, Allow: rule.Allow})
	}
	return rules
}
