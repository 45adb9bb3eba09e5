package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constref/internal/core/errors"
	"constref/internal/engine/ast"
	"constref/internal/engine/resolver"
)

func reference(from, constant, to string, line int) resolver.Reference {
	return resolver.Reference{
		RelativePath:   from,
		Constant:       resolver.ConstantContext{Name: constant, Location: to},
		SourceLocation: ast.Location{Line: line, Column: 7},
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndLoadRun(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	refs := []resolver.Reference{
		reference("app/models/order.rb", "::LineItem", "app/models/line_item.rb", 3),
		reference("app/models/line_item.rb", "::Order", "app/models/order.rb", 2),
	}
	saved, err := store.SaveRun(ctx, Run{ProjectKey: "shop", FileCount: 2, CycleCount: 1}, refs)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 2, saved.ReferenceCount)

	latest, err := store.LatestRun(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, latest.ID)
	assert.Equal(t, 1, latest.CycleCount)

	loaded, err := store.LoadReferences(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []resolver.Reference{refs[1], refs[0]}, loaded)
}

func TestStore_LatestRunOrdering(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	_, err := store.SaveRun(ctx, Run{StartedAt: base}, nil)
	require.NoError(t, err)
	second, err := store.SaveRun(ctx, Run{StartedAt: base.Add(time.Hour)}, nil)
	require.NoError(t, err)

	latest, err := store.LatestRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	runs, err := store.LoadRuns(ctx, "", base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
}

func TestStore_LatestRunMissing(t *testing.T) {
	_, err := openStore(t).LatestRun(context.Background(), "nothing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestStore_DiffRuns(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	before, err := store.SaveRun(ctx, Run{}, []resolver.Reference{
		reference("a.rb", "::B", "b.rb", 1),
		reference("a.rb", "::C", "c.rb", 2),
	})
	require.NoError(t, err)
	after, err := store.SaveRun(ctx, Run{}, []resolver.Reference{
		reference("a.rb", "::B", "b.rb", 9),
		reference("a.rb", "::D", "d.rb", 2),
	})
	require.NoError(t, err)

	diff, err := store.DiffRuns(ctx, before.ID, after.ID)
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{{From: "a.rb", Constant: "::D", To: "d.rb"}}, diff.Added)
	assert.Equal(t, []EdgeKey{{From: "a.rb", Constant: "::C", To: "c.rb"}}, diff.Removed)
	assert.False(t, diff.Empty())
}

func TestOpen_RejectsBadPaths(t *testing.T) {
	_, err := Open(" ", 0)
	assert.Error(t, err)

	_, err = Open(t.TempDir(), 0)
	assert.Error(t, err)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := openStore(t)
	require.NoError(t, EnsureSchema(store.db))

	var version int
	require.NoError(t, store.db.QueryRow(`PRAGMA user_version`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestEnsureSchemaRejectsNewerDatabase(t *testing.T) {
	store := openStore(t)
	_, err := store.db.Exec(`PRAGMA user_version = 99`)
	require.NoError(t, err)

	err = EnsureSchema(store.db)
	assert.True(t, errors.IsCode(err, errors.CodeConflict))
}
