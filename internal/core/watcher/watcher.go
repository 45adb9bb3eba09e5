// Package watcher reports debounced file changes below a set of roots.
package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"constref/internal/shared/observability"
)

// Op describes what happened to a path during one debounce window.
type Op int

const (
	Modified Op = iota
	Created
	Removed
)

func (o Op) String() string {
	return [...]string{"modified", "created", "removed"}[o]
}

// Change is one debounced file event. Created and Removed change which files
// exist, so they outrank Modified when events for a path are coalesced.
type Change struct {
	Path string
	Op   Op
}

// Watcher watches directory trees recursively. New directories are picked up
// as they appear and the files already inside them are reported as Created.
type Watcher struct {
	fsw     *fsnotify.Watcher
	filter  *Filter
	pending *batch
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]Change)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	filter, err := NewFilter(excludeDirs, excludeFiles)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fsw: fsw, filter: filter, pending: newBatch(debounce, onChange)}, nil
}

// SetFilters replaces the extension and file-name allow lists.
func (w *Watcher) SetFilters(extensions, filenames []string) {
	w.filter.Allow(extensions, filenames)
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pending.setDelay(debounce)
}

// Watch adds every root and starts delivering events in the background.
func (w *Watcher) Watch(roots []string) error {
	for _, root := range roots {
		if err := w.addTree(root, false); err != nil {
			return err
		}
	}
	go w.loop()
	return nil
}

func (w *Watcher) Close() error {
	w.pending.stop()
	return w.fsw.Close()
}

// addTree watches root and its subdirectories. With announce set, files found
// on the way are queued as Created.
func (w *Watcher) addTree(root string, announce bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if announce && w.filter.Accept(path) {
				w.pending.add(path, Created)
			}
			return nil
		}
		if path != root && w.filter.SkipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.filter.SkipDir(event.Name) {
				return
			}
			if err := w.addTree(event.Name, true); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if !w.filter.Accept(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create):
		w.pending.add(event.Name, Created)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.pending.add(event.Name, Removed)
	case event.Has(fsnotify.Write):
		w.pending.add(event.Name, Modified)
	}
}
