package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStore_CheckpointRollback(t *testing.T) {
	ctx := context.Background()
	s := NewCounterStore("pending")

	_, err := s.Add("pending", 2)
	require.NoError(t, err)

	handle, err := s.Checkpoint(ctx, "cp")
	require.NoError(t, err)

	_, err = s.Add("pending", 5)
	require.NoError(t, err)
	require.Equal(t, 7, s.Value("pending"))

	require.NoError(t, s.Rollback(ctx, handle))
	assert.Equal(t, 2, s.Value("pending"))
}

func TestCounterStore_UndeclaredCounterRejected(t *testing.T) {
	s := NewCounterStore("pending")
	_, err := s.Add("ghost", 1)
	require.Error(t, err)
}

func TestCounterStore_AnyOrderRollback(t *testing.T) {
	ctx := context.Background()
	s := NewCounterStore("n")

	h0, _ := s.Checkpoint(ctx, "cp0")
	_, _ = s.Add("n", 1)
	h1, _ := s.Checkpoint(ctx, "cp1")
	_, _ = s.Add("n", 1)
	_, _ = s.Checkpoint(ctx, "cp2")

	// Snapshot copies tolerate jumps in any order.
	require.NoError(t, s.Rollback(ctx, h0))
	assert.Equal(t, 0, s.Value("n"))
	require.NoError(t, s.Rollback(ctx, h1))
	assert.Equal(t, 1, s.Value("n"))
}

func TestStackStore_LIFOOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStackStore("n")

	h0, err := s.Checkpoint(ctx, "cp0")
	require.NoError(t, err)
	_, _ = s.Add("n", 1)
	h1, err := s.Checkpoint(ctx, "cp1")
	require.NoError(t, err)
	_, _ = s.Add("n", 1)
	h2, err := s.Checkpoint(ctx, "cp2")
	require.NoError(t, err)

	// Rolling back to the top is fine and keeps the savepoint valid.
	require.NoError(t, s.Rollback(ctx, h2))

	// Rolling back to h0 releases h1 and h2.
	require.NoError(t, s.Rollback(ctx, h0))
	assert.Equal(t, 0, s.Value("n"))

	err = s.Rollback(ctx, h1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "released")
}

func TestCounterStore_ObserveIsCopy(t *testing.T) {
	s := NewCounterStore("n")
	o, err := s.Observe(context.Background())
	require.NoError(t, err)

	o.Data["n"] = 99
	assert.Equal(t, 0, s.Value("n"), "observation data must not alias store state")
}

func TestDeterministicClock_Advances(t *testing.T) {
	c := NewDeterministicClock(time.Unix(100, 0), time.Second)
	assert.Equal(t, time.Unix(100, 0), c.Now())
	assert.Equal(t, time.Unix(101, 0), c.Now())
}

func TestFixedIDGenerator_Sequence(t *testing.T) {
	g := NewFixedIDGenerator("cp")
	assert.Equal(t, "cp-1", g.Generate())
	assert.Equal(t, "cp-2", g.Generate())
}
