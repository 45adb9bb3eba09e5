package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// ReloadDelay is how long the file must stay quiet before it is reloaded.
const ReloadDelay = 100 * time.Millisecond

// Watcher reloads a configuration file when its content changes on disk and
// hands each successfully loaded Config to a callback.
type Watcher struct {
	path     string
	onReload func(*Config)

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	digest uint64
}

func NewWatcher(path string, onReload func(*Config)) *Watcher {
	return &Watcher{path: filepath.Clean(path), onReload: onReload}
}

// Start begins watching in the background until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Saves that replace the file only show up on the parent directory.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}
	w.digest = fileDigest(w.path)

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx, fsw)
	slog.Info("watching config", "path", w.path)
	return nil
}

// Stop ends the watch and waits for the background loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()

	quiet := time.NewTimer(ReloadDelay)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == w.path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				quiet.Reset(ReloadDelay)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "path", w.path, "error", err)
		case <-quiet.C:
			w.reload()
		}
	}
}

// reload skips writes that leave the content unchanged, such as a touch.
func (w *Watcher) reload() {
	digest := fileDigest(w.path)
	if digest == w.digest {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config reload failed", "path", w.path, "error", err)
		return
	}
	w.digest = digest
	slog.Info("config reloaded", "path", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

func fileDigest(path string) uint64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
