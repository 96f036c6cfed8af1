package shrink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/invariant"
	"github.com/roach88/wander/internal/testutil"
	"github.com/roach88/wander/internal/world"
)

type fixture struct {
	world    *world.World
	store    *testutil.CounterStore
	actions  map[string]*action.Action
	initial  string
	shrinker *Shrinker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewCounterStore("pending")
	w := world.New(nil,
		world.WithIDGenerator(testutil.NewFixedIDGenerator("cp")),
	)
	require.NoError(t, w.Register("db", store))

	s, err := w.ObserveAndCheckpoint(context.Background(), "")
	require.NoError(t, err)

	actions := map[string]*action.Action{
		"push": testutil.CounterAction(store, "push", "pending", 1),
		"pop":  testutil.CounterAction(store, "pop", "pending", -1),
	}
	f := &fixture{world: w, store: store, actions: actions, initial: s.CheckpointID}
	f.shrinker = New(w, actions, f.initial, nil)
	return f
}

func pathOf(names ...string) []graph.Transition {
	path := make([]graph.Transition, 0, len(names))
	prev := "s0"
	for i, n := range names {
		next := "s" + string(rune('1'+i))
		path = append(path, graph.NewTransition(prev, n, next, nil))
		prev = next
	}
	return path
}

func nonNegative() invariant.Invariant {
	return invariant.Invariant{
		Name:     "pending_non_negative",
		Severity: invariant.SeverityHigh,
		Check: func(w *world.World) (bool, error) {
			s, err := w.Observe(context.Background())
			if err != nil {
				return false, err
			}
			o, _ := s.Get("db")
			n, _ := o.Data["pending"].(int)
			return n >= 0, nil
		},
	}
}

func TestShrink_ReducesToMinimalPath(t *testing.T) {
	f := newFixture(t)
	inv := nonNegative()

	v := invariant.NewViolation(inv, "s3", "pop", pathOf("push", "pop", "pop"), time.Unix(1, 0))

	shrunk, err := f.shrinker.Shrink(context.Background(), v, inv)
	require.NoError(t, err)
	require.Len(t, shrunk, 1)
	assert.Equal(t, "pop", shrunk[0].ActionName)
}

func TestShrink_ResultNeverLongerThanOriginal(t *testing.T) {
	f := newFixture(t)
	inv := nonNegative()

	original := pathOf("push", "push", "pop", "pop", "pop")
	v := invariant.NewViolation(inv, "s5", "pop", original, time.Unix(1, 0))

	shrunk, err := f.shrinker.Shrink(context.Background(), v, inv)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(shrunk), len(original))

	// The shrunk path must still reproduce: replay it by hand.
	require.NoError(t, f.world.RollbackTo(context.Background(), f.initial))
	for _, tr := range shrunk {
		f.world.Act(context.Background(), f.actions[tr.ActionName])
	}
	ok, err := inv.Check(f.world)
	require.NoError(t, err)
	assert.False(t, ok, "shrunk path reproduces the identical failure")
}

func TestShrink_SingleStepUntouched(t *testing.T) {
	f := newFixture(t)
	inv := nonNegative()

	original := pathOf("pop")
	v := invariant.NewViolation(inv, "s1", "pop", original, time.Unix(1, 0))

	shrunk, err := f.shrinker.Shrink(context.Background(), v, inv)
	require.NoError(t, err)
	assert.Equal(t, original, shrunk)
}

func TestShrink_NonReproducingCandidatesRejected(t *testing.T) {
	f := newFixture(t)
	inv := nonNegative()

	// Removing the pop yields [push], which does not reproduce and must be
	// rejected; removing the push yields [pop], which does.
	v := invariant.NewViolation(inv, "s2", "pop", pathOf("pop", "push"), time.Unix(1, 0))

	shrunk, err := f.shrinker.Shrink(context.Background(), v, inv)
	require.NoError(t, err)
	require.NotEmpty(t, shrunk)
	assert.LessOrEqual(t, len(shrunk), 2)

	require.NoError(t, f.world.RollbackTo(context.Background(), f.initial))
	for _, tr := range shrunk {
		f.world.Act(context.Background(), f.actions[tr.ActionName])
	}
	ok, err := inv.Check(f.world)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShrink_CheckErrorOutcomeMatchedExactly(t *testing.T) {
	f := newFixture(t)

	// The check errors only when pending is negative. A check-error
	// violation must shrink against the error outcome, not plain failure.
	inv := invariant.Invariant{
		Name:     "erroring",
		Severity: invariant.SeverityMedium,
		Check: func(w *world.World) (bool, error) {
			if f.store.Value("pending") < 0 {
				return false, errors.New("query exploded")
			}
			return true, nil
		},
	}

	v := invariant.NewCheckErrorViolation(inv, errors.New("query exploded"), "s3", "pop",
		pathOf("push", "pop", "pop"), time.Unix(1, 0))

	shrunk, err := f.shrinker.Shrink(context.Background(), v, inv)
	require.NoError(t, err)
	require.Len(t, shrunk, 1)
	assert.Equal(t, "pop", shrunk[0].ActionName)
}

func TestShrink_LeavesWorldAtInitialCheckpoint(t *testing.T) {
	f := newFixture(t)
	inv := nonNegative()

	v := invariant.NewViolation(inv, "s3", "pop", pathOf("push", "pop", "pop"), time.Unix(1, 0))
	_, err := f.shrinker.Shrink(context.Background(), v, inv)
	require.NoError(t, err)

	assert.Equal(t, 0, f.store.Value("pending"), "world restored for the agent to resume")
}
