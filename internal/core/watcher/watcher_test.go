package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan []Change, path string, op Op) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case changes := <-ch:
			for _, c := range changes {
				if c.Path == path && c.Op == op {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s on %s", op, path)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrInvalid))
	assert.Nil(t, w)
}

func TestNewWatcher_RejectsInvalidPattern(t *testing.T) {
	_, err := NewWatcher(10*time.Millisecond, []string{"tmp["}, nil, func([]Change) {})
	assert.Error(t, err)
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changes := make(chan []Change, 8)
	w, err := NewWatcher(100*time.Millisecond, []string{"tmp"}, []string{"*_spec.rb"}, func(c []Change) {
		changes <- c
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	model := filepath.Join(tmpDir, "order.rb")
	require.NoError(t, os.WriteFile(model, []byte("class Order; end"), 0o644))
	waitFor(t, changes, model, Created)

	require.NoError(t, os.WriteFile(model, []byte("class Order < ApplicationRecord; end"), 0o644))
	waitFor(t, changes, model, Modified)

	excluded := filepath.Join(tmpDir, "order_spec.rb")
	require.NoError(t, os.WriteFile(excluded, []byte("describe Order"), 0o644))
	select {
	case got := <-changes:
		for _, c := range got {
			assert.NotEqual(t, excluded, c.Path, "excluded file triggered event")
		}
	case <-time.After(400 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "billing")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	nested := filepath.Join(subdir, "invoice.rb")
	require.NoError(t, os.WriteFile(nested, []byte("module Billing; class Invoice; end; end"), 0o644))
	waitFor(t, changes, nested, Created)

	require.NoError(t, os.Remove(model))
	waitFor(t, changes, model, Removed)
}

func TestWatcher_RenameReportsRemoval(t *testing.T) {
	tmpDir := t.TempDir()

	changes := make(chan []Change, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(c []Change) {
		changes <- c
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	oldPath := filepath.Join(tmpDir, "old.rb")
	newPath := filepath.Join(tmpDir, "new.rb")
	require.NoError(t, os.WriteFile(oldPath, []byte("Old = 1"), 0o644))
	waitFor(t, changes, oldPath, Created)

	require.NoError(t, os.Rename(oldPath, newPath))
	waitFor(t, changes, oldPath, Removed)
}

func TestWatcher_Filters(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, []string{"schema.rb"}, func([]Change) {})
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.filter.Accept("app/models/order.rb"))
	assert.True(t, w.filter.Accept("app/views/orders/show.html.erb"))
	assert.False(t, w.filter.Accept("app/javascript/main.js"))
	assert.False(t, w.filter.Accept("Gemfile"))
	assert.False(t, w.filter.Accept("db/schema.rb"))

	w.SetFilters([]string{".rb", ".rake"}, []string{"Gemfile"})
	assert.True(t, w.filter.Accept("Gemfile"))
	assert.True(t, w.filter.Accept("lib/tasks/db.rake"))
	assert.False(t, w.filter.Accept("app/views/orders/show.html.erb"))
}

func TestBatchKeepsStructuralOp(t *testing.T) {
	got := make(chan []Change, 1)
	w, err := NewWatcher(20*time.Millisecond, nil, nil, func(c []Change) { got <- c })
	require.NoError(t, err)
	defer w.Close()

	w.pending.add("a.rb", Created)
	w.pending.add("a.rb", Modified)
	w.pending.add("b.rb", Modified)

	select {
	case changes := <-got:
		assert.Equal(t, []Change{{Path: "a.rb", Op: Created}, {Path: "b.rb", Op: Modified}}, changes)
	case <-time.After(time.Second):
		t.Fatal("no flush")
	}
}

func TestFilterSkipDir(t *testing.T) {
	f, err := NewFilter([]string{"node_modules", "tmp*"}, nil)
	require.NoError(t, err)

	assert.True(t, f.SkipDir("/repo/.git"))
	assert.True(t, f.SkipDir("/repo/node_modules"))
	assert.True(t, f.SkipDir("/repo/tmpcache"))
	assert.False(t, f.SkipDir("/repo/app"))
}

func TestBatchSetDelayAndStop(t *testing.T) {
	got := make(chan []Change, 2)
	b := newBatch(time.Hour, func(c []Change) { got <- c })
	b.setDelay(10 * time.Millisecond)
	b.add("a.rb", Modified)

	select {
	case changes := <-got:
		assert.Equal(t, []Change{{Path: "a.rb", Op: Modified}}, changes)
	case <-time.After(time.Second):
		t.Fatal("no flush")
	}

	b.stop()
	b.add("b.rb", Created)
	select {
	case <-got:
		t.Fatal("stopped batch flushed")
	case <-time.After(100 * time.Millisecond):
	}
}
