// Package shrink minimizes violation reproduction paths with delta
// debugging.
//
// Given an N-step violation, the Shrinker searches for the shortest
// subsequence of actions that, replayed from the initial checkpoint, still
// reproduces the same (invariant, outcome) pair. Candidates that stop
// reproducing are simply rejected: non-determinism in the system under
// test must never be mistaken for a shrinker bug.
//
// Replay rolls the World back to the initial checkpoint repeatedly, which
// destroys any savepoint stack above it. Shrinking therefore requires
// snapshot-copy adapters, same as the non-DFS strategies.
package shrink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/invariant"
	"github.com/roach88/wander/internal/world"
)

// outcome is the reproduction fingerprint: which invariant, and whether it
// failed or errored.
type outcome int

const (
	outcomePass outcome = iota
	outcomeFail
	outcomeError
)

// Shrinker replays candidate subsequences against the live World.
type Shrinker struct {
	world   *world.World
	actions map[string]*action.Action

	// initialCheckpointID anchors every replay: candidates are always
	// replayed from the run's first committed checkpoint.
	initialCheckpointID string

	logger *slog.Logger
}

// New builds a Shrinker. The actions map must contain every action name
// that can appear on a reproduction path.
func New(w *world.World, actions map[string]*action.Action, initialCheckpointID string, logger *slog.Logger) *Shrinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shrinker{
		world:               w,
		actions:             actions,
		initialCheckpointID: initialCheckpointID,
		logger:              logger,
	}
}

// Shrink returns a path no longer than v.Path that reproduces the same
// (invariant, outcome). Paths of length <= 1 are returned untouched.
//
// The algorithm is ddmin: remove the largest contiguous block first, halve
// the block size whenever no removal at the current size reproduces, stop
// at block size zero. Every accepted reduction has been re-verified by a
// fresh rollback-to-initial replay.
//
// On return the World has been rolled back to the initial checkpoint. The
// only error returned is a fatal *world.RollbackError.
func (s *Shrinker) Shrink(ctx context.Context, v invariant.Violation, inv invariant.Invariant) ([]graph.Transition, error) {
	if len(v.Path) <= 1 {
		return v.Path, nil
	}

	want := outcomeFail
	if v.CheckErrored {
		want = outcomeError
	}

	best := v.Path
	blockSize := len(best) / 2

	for blockSize >= 1 {
		reduced := false
		for start := 0; start+blockSize <= len(best); start++ {
			if err := ctx.Err(); err != nil {
				break
			}
			candidate := without(best, start, blockSize)
			got, err := s.replay(ctx, candidate, inv)
			if err != nil {
				return nil, err
			}
			if got == want {
				s.logger.Debug("shrink accepted",
					"invariant", inv.Name, "from", len(best), "to", len(candidate))
				best = candidate
				reduced = true
				// Rescan at the same granularity against the shorter path.
				blockSize = min(blockSize, len(best)/2)
				if blockSize == 0 {
					blockSize = 1
				}
				start = -1
				if len(best) <= 1 {
					blockSize = 0
					break
				}
			}
		}
		if !reduced {
			blockSize /= 2
		}
		if ctx.Err() != nil {
			break
		}
	}

	// Leave the World in a known state for the agent to resume from.
	if err := s.world.RollbackTo(ctx, s.initialCheckpointID); err != nil {
		return nil, err
	}
	return best, nil
}

// replay rolls back to the initial checkpoint, executes the candidate's
// actions in order, and evaluates the invariant once at the end.
//
// Preconditions are not re-checked during replay: an action that no longer
// applies simply fails, the invariant verdict diverges, and the candidate
// is rejected.
func (s *Shrinker) replay(ctx context.Context, path []graph.Transition, inv invariant.Invariant) (outcome, error) {
	if err := s.world.RollbackTo(ctx, s.initialCheckpointID); err != nil {
		return outcomePass, err
	}
	for _, t := range path {
		a, ok := s.actions[t.ActionName]
		if !ok {
			return outcomePass, fmt.Errorf("replay references unknown action %q", t.ActionName)
		}
		s.world.Act(ctx, a)
	}

	ok, err := inv.Check(s.world)
	switch {
	case err != nil:
		return outcomeError, nil
	case !ok:
		return outcomeFail, nil
	default:
		return outcomePass, nil
	}
}

// without returns path with the block [start, start+size) removed.
func without(path []graph.Transition, start, size int) []graph.Transition {
	out := make([]graph.Transition, 0, len(path)-size)
	out = append(out, path[:start]...)
	out = append(out, path[start+size:]...)
	return out
}
