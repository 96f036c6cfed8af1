package world

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/obs"
)

// fakeStore is a snapshot-copy in-memory store for tests. Each checkpoint
// is an independent deep copy, so rollback order does not matter.
type fakeStore struct {
	data      map[string]any
	snapshots map[string]map[string]any
	seq       int

	failRollback bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data:      make(map[string]any),
		snapshots: make(map[string]map[string]any),
	}
}

func (f *fakeStore) set(key string, v any) { f.data[key] = v }

func (f *fakeStore) Checkpoint(_ context.Context, name string) (string, error) {
	f.seq++
	handle := fmt.Sprintf("%s#%d", name, f.seq)
	snap := make(map[string]any, len(f.data))
	for k, v := range f.data {
		snap[k] = v
	}
	f.snapshots[handle] = snap
	return handle, nil
}

func (f *fakeStore) Rollback(_ context.Context, handle string) error {
	if f.failRollback {
		return errors.New("disk on fire")
	}
	snap, ok := f.snapshots[handle]
	if !ok {
		return fmt.Errorf("unknown handle %q", handle)
	}
	restored := make(map[string]any, len(snap))
	for k, v := range snap {
		restored[k] = v
	}
	f.data = restored
	return nil
}

func (f *fakeStore) Observe(context.Context) (obs.Observation, error) {
	data := make(map[string]any, len(f.data))
	for k, v := range f.data {
		data[k] = v
	}
	return obs.Observation{Data: data}, nil
}

type fixedIDs struct {
	prefix string
	n      int
}

func (g *fixedIDs) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

func TestWorld_Register_RejectsDuplicateName(t *testing.T) {
	w := New(nil)
	require.NoError(t, w.Register("db", newFakeStore()))
	err := w.Register("db", newFakeStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestWorld_Observe_AssemblesAllSystems(t *testing.T) {
	db := newFakeStore()
	db.set("users", 2)
	cache := newFakeStore()
	cache.set("hits", 9)

	w := New(nil)
	require.NoError(t, w.Register("db", db))
	require.NoError(t, w.Register("cache", cache))

	s, err := w.Observe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"cache", "db"}, s.Systems())
	got, ok := s.Get("db")
	require.True(t, ok)
	assert.Equal(t, "db", got.System)
	assert.Equal(t, 2, got.Data["users"])
	assert.Equal(t, s.ID, w.LiveStateID())
}

func TestWorld_ObserveAfterRollback_MatchesCheckpointObservation(t *testing.T) {
	db := newFakeStore()
	db.set("pending", 0)

	w := New(nil, WithClock(func() time.Time { return time.Unix(0, 0) }))
	require.NoError(t, w.Register("db", db))

	before, err := w.ObserveAndCheckpoint(context.Background(), "cp-initial")
	require.NoError(t, err)

	db.set("pending", 7)
	mutated, err := w.Observe(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, before.ID, mutated.ID)

	require.NoError(t, w.RollbackTo(context.Background(), "cp-initial"))

	after, err := w.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID,
		"observe immediately after rollback must be content-identical")
}

func TestWorld_Checkpoint_BundlesOneHandlePerSystem(t *testing.T) {
	w := New(nil, WithIDGenerator(&fixedIDs{prefix: "cp"}))
	require.NoError(t, w.Register("db", newFakeStore()))
	require.NoError(t, w.Register("queue", newFakeStore()))

	cp, err := w.Checkpoint(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "cp-1", cp.ID)
	assert.Len(t, cp.Handles, 2)
	assert.Contains(t, cp.Handles, "db")
	assert.Contains(t, cp.Handles, "queue")

	stored, ok := w.LookupCheckpoint("cp-1")
	require.True(t, ok)
	assert.Equal(t, cp, stored)
}

func TestWorld_RollbackTo_UnknownCheckpoint(t *testing.T) {
	w := New(nil)
	err := w.RollbackTo(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsRollbackError(err))
}

func TestWorld_RollbackTo_AdapterFailureIsRollbackError(t *testing.T) {
	db := newFakeStore()
	w := New(nil)
	require.NoError(t, w.Register("db", db))

	_, err := w.ObserveAndCheckpoint(context.Background(), "cp-1")
	require.NoError(t, err)

	db.failRollback = true
	err = w.RollbackTo(context.Background(), "cp-1")
	require.Error(t, err)

	var re *RollbackError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "db", re.System)
	assert.Equal(t, "cp-1", re.CheckpointID)
}

func TestWorld_Act_CapturesSuccess(t *testing.T) {
	w := New("the-api")
	a := &action.Action{
		Name: "ping",
		Execute: func(_ context.Context, api any, _ *action.Context) (*action.Result, error) {
			assert.Equal(t, "the-api", api)
			return &action.Result{Request: "GET /ping", Status: 200, Success: true}, nil
		},
	}

	res := w.Act(context.Background(), a)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Same(t, res, w.LastActionResult())
}

func TestWorld_Act_ExecutionErrorBecomesFailedResult(t *testing.T) {
	w := New(nil)
	a := &action.Action{
		Name: "boom",
		Execute: func(context.Context, any, *action.Context) (*action.Result, error) {
			return nil, errors.New("connection refused")
		},
	}

	res := w.Act(context.Background(), a)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "connection refused")
	assert.Same(t, res, w.LastActionResult())
}

func TestWorld_ObserveAndCheckpoint_LinksStateAndCheckpoint(t *testing.T) {
	w := New(nil, WithIDGenerator(&fixedIDs{prefix: "cp"}))
	require.NoError(t, w.Register("db", newFakeStore()))

	s, err := w.ObserveAndCheckpoint(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "cp-1", s.CheckpointID)
	cp, ok := w.LookupCheckpoint("cp-1")
	require.True(t, ok)
	assert.Equal(t, s.ID, cp.StateID)
}
