package watcher

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// batch coalesces changes until no new one has arrived for delay, then hands
// them to flush sorted by path. Flushes never overlap.
type batch struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]Op
	timer   *time.Timer
	stopped bool

	flushMu sync.Mutex
	flush   func([]Change)
}

func newBatch(delay time.Duration, flush func([]Change)) *batch {
	return &batch{delay: delay, pending: make(map[string]Op), flush: flush}
}

// add records op for path. A structural op already pending for the path is
// not downgraded to Modified.
func (b *batch) add(path string, op Op) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	if prev, seen := b.pending[path]; !seen || op != Modified || prev == Modified {
		b.pending[path] = op
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.delay, b.fire)
		return
	}
	b.timer.Reset(b.delay)
}

func (b *batch) setDelay(delay time.Duration) {
	b.mu.Lock()
	b.delay = delay
	b.mu.Unlock()
}

func (b *batch) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
}

func (b *batch) fire() {
	b.mu.Lock()
	changes := make([]Change, 0, len(b.pending))
	for path, op := range b.pending {
		changes = append(changes, Change{Path: path, Op: op})
	}
	clear(b.pending)
	b.mu.Unlock()

	if len(changes) == 0 {
		return
	}
	slices.SortFunc(changes, func(x, y Change) int { return strings.Compare(x.Path, y.Path) })

	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.flush(changes)
}
