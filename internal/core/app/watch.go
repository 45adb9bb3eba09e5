package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"constref/internal/core/config"
	"constref/internal/core/watcher"
)

// Watch keeps the graph current until ctx is done. onUpdate, when set, runs
// after every applied batch.
func (a *App) Watch(ctx context.Context, onUpdate func()) error {
	debounce, excludeDirs := a.watchSettings()
	w, err := watcher.NewWatcher(
		debounce,
		excludeDirs,
		nil,
		func(changes []watcher.Change) {
			a.HandleChanges(ctx, changes)
			if onUpdate != nil {
				onUpdate()
			}
		},
	)
	if err != nil {
		return err
	}
	w.SetFilters(a.parsers.SupportedExtensions(), []string{"Gemfile", "Rakefile"})

	a.watcherMu.Lock()
	a.activeWatcher = w
	// A reload between NewWatcher and here would otherwise be missed.
	if current, _ := a.watchSettings(); current != debounce {
		w.SetDebounce(current)
	}
	a.watcherMu.Unlock()

	if err := w.Watch([]string{filepath.Clean(a.Extractor.ProjectRoot())}); err != nil {
		return err
	}
	<-ctx.Done()
	return a.stopWatcher(w)
}

func (a *App) watchSettings() (time.Duration, []string) {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.Config.Watch.Debounce, append([]string(nil), a.Config.Scan.ExcludeDirs...)
}

func (a *App) stopWatcher(w *watcher.Watcher) error {
	a.watcherMu.Lock()
	defer a.watcherMu.Unlock()
	if a.activeWatcher != w {
		return nil
	}
	a.activeWatcher = nil
	return w.Close()
}

// ApplyConfig takes over the settings of a reloaded configuration that do
// not need a new index: outputs, granularity and the watch debounce. Other
// changes apply on restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.configMu.Lock()
	a.Config.Output = cfg.Output
	a.Config.Watch = cfg.Watch
	a.configMu.Unlock()

	a.watcherMu.Lock()
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(cfg.Watch.Debounce)
	}
	a.watcherMu.Unlock()
	slog.Info("configuration reloaded", "granularity", cfg.Output.Granularity, "debounce", cfg.Watch.Debounce)
}
