package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavepointStore_RollbackRestoresRows(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)

	store, err := NewSavepointStore(db, "users")
	require.NoError(t, err)

	ctx := context.Background()

	h1, err := store.Checkpoint(ctx, "initial")
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users (name) VALUES ('mara')`)
	require.NoError(t, err)

	o, err := store.Observe(ctx)
	require.NoError(t, err)
	require.Len(t, o.Data["users"], 1)

	require.NoError(t, store.Rollback(ctx, h1))

	o, err = store.Observe(ctx)
	require.NoError(t, err)
	assert.Empty(t, o.Data["users"])
}

func TestSavepointStore_RollingBackReleasesLaterHandles(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)

	store, err := NewSavepointStore(db, "users")
	require.NoError(t, err)

	ctx := context.Background()

	h1, err := store.Checkpoint(ctx, "a")
	require.NoError(t, err)
	h2, err := store.Checkpoint(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, store.Rollback(ctx, h1))

	err = store.Rollback(ctx, h2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "released or never issued")
}

func TestSnapshotStore_AnyOrderRollback(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)

	store, err := NewSnapshotStore(db, "users")
	require.NoError(t, err)

	ctx := context.Background()

	h0, err := store.Checkpoint(ctx, "empty")
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users (name) VALUES ('mara')`)
	require.NoError(t, err)
	h1, err := store.Checkpoint(ctx, "one")
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users (name) VALUES ('jun')`)
	require.NoError(t, err)

	// Snapshots can be restored in any order, repeatedly.
	require.NoError(t, store.Rollback(ctx, h0))
	o, err := store.Observe(ctx)
	require.NoError(t, err)
	assert.Empty(t, o.Data["users"])

	require.NoError(t, store.Rollback(ctx, h1))
	o, err = store.Observe(ctx)
	require.NoError(t, err)
	rows, ok := o.Data["users"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "mara", rows[0]["name"])

	require.NoError(t, store.Rollback(ctx, h0))
	o, err = store.Observe(ctx)
	require.NoError(t, err)
	assert.Empty(t, o.Data["users"])
}

func TestSnapshotStore_UnknownHandle(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)

	store, err := NewSnapshotStore(db, "users")
	require.NoError(t, err)

	err = store.Rollback(context.Background(), "snap_99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown snapshot")
}

func TestNewSavepointStore_RejectsUnsafeTableNames(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSavepointStore(db, `users"; DROP TABLE users; --`)
	require.Error(t, err)
}
