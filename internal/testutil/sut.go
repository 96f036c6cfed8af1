package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/obs"
)

// CounterStore is a snapshot-copy in-memory store holding named integer
// counters. Every checkpoint is an independent deep copy, so rollback to
// any earlier handle is valid, so it is safe under every strategy.
//
// Counters must be declared at construction so that the observed key set
// (and therefore the State hash) is stable from the very first observation.
type CounterStore struct {
	mu        sync.Mutex
	counters  map[string]int
	snapshots map[string]map[string]int
	seq       int
}

// NewCounterStore creates a store with the given counters initialized to 0.
func NewCounterStore(names ...string) *CounterStore {
	counters := make(map[string]int, len(names))
	for _, n := range names {
		counters[n] = 0
	}
	return &CounterStore{
		counters:  counters,
		snapshots: make(map[string]map[string]int),
	}
}

// Add applies delta to the named counter and returns the new value.
// Undeclared counters are rejected to keep the observed key set stable.
func (s *CounterStore) Add(name string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counters[name]; !ok {
		return 0, fmt.Errorf("undeclared counter %q", name)
	}
	s.counters[name] += delta
	return s.counters[name], nil
}

// Set assigns the named counter.
func (s *CounterStore) Set(name string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counters[name]; !ok {
		return fmt.Errorf("undeclared counter %q", name)
	}
	s.counters[name] = value
	return nil
}

// Value returns the named counter's current value.
func (s *CounterStore) Value(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

// Checkpoint deep-copies the counters under a fresh handle.
func (s *CounterStore) Checkpoint(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	handle := fmt.Sprintf("%s#%d", name, s.seq)
	snap := make(map[string]int, len(s.counters))
	for k, v := range s.counters {
		snap[k] = v
	}
	s.snapshots[handle] = snap
	return handle, nil
}

// Rollback restores the copy stored under handle. Any issued handle remains
// valid for the whole run.
func (s *CounterStore) Rollback(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[handle]
	if !ok {
		return fmt.Errorf("unknown handle %q", handle)
	}
	restored := make(map[string]int, len(snap))
	for k, v := range snap {
		restored[k] = v
	}
	s.counters = restored
	return nil
}

// Observe returns the current counter values.
func (s *CounterStore) Observe(context.Context) (obs.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make(map[string]any, len(s.counters))
	for k, v := range s.counters {
		data[k] = v
	}
	return obs.Observation{Data: data}, nil
}

// StackStore wraps a CounterStore with transactional-savepoint discipline:
// a handle may only be rolled back to while it is still on the savepoint
// stack, and rolling back releases every handle issued after it. Jumping to
// a released handle errors, which is exactly what a non-LIFO strategy
// does to a savepoint-style store.
type StackStore struct {
	mu    sync.Mutex
	inner *CounterStore
	stack []string
}

// NewStackStore creates a LIFO-only store with the given counters.
func NewStackStore(names ...string) *StackStore {
	return &StackStore{inner: NewCounterStore(names...)}
}

// Add applies delta to the named counter.
func (s *StackStore) Add(name string, delta int) (int, error) {
	return s.inner.Add(name, delta)
}

// Value returns the named counter's current value.
func (s *StackStore) Value(name string) int {
	return s.inner.Value(name)
}

// Checkpoint pushes a new savepoint onto the stack.
func (s *StackStore) Checkpoint(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, err := s.inner.Checkpoint(ctx, name)
	if err != nil {
		return "", err
	}
	s.stack = append(s.stack, handle)
	return handle, nil
}

// Rollback restores handle if it is still on the stack and releases every
// savepoint above it. The target itself stays valid, matching SQL
// "ROLLBACK TO SAVEPOINT" semantics.
func (s *StackStore) Rollback(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i] == handle {
			if err := s.inner.Rollback(ctx, handle); err != nil {
				return err
			}
			s.stack = s.stack[:i+1]
			return nil
		}
	}
	return fmt.Errorf("savepoint %q released or never issued", handle)
}

// Observe returns the current counter values.
func (s *StackStore) Observe(ctx context.Context) (obs.Observation, error) {
	return s.inner.Observe(ctx)
}

// CounterAction builds an action that applies delta to a counter in the
// store, bypassing any API client. Used to model minimal SUTs in tests.
func CounterAction(store interface {
	Add(name string, delta int) (int, error)
}, name, counter string, delta int, pre ...action.Precondition) *action.Action {
	return &action.Action{
		Name:          name,
		Preconditions: pre,
		Execute: func(_ context.Context, _ any, _ *action.Context) (*action.Result, error) {
			v, err := store.Add(counter, delta)
			if err != nil {
				return nil, err
			}
			return &action.Result{
				Request:  name,
				Response: fmt.Sprintf("%s=%d", counter, v),
				Success:  true,
			}, nil
		},
	}
}

// CounterAtLeast is a precondition requiring the observed counter under the
// given system to be >= minimum.
func CounterAtLeast(system, counter string, minimum int) action.Precondition {
	return func(s *obs.State, _ *action.Context) bool {
		o, ok := s.Get(system)
		if !ok {
			return false
		}
		n, ok := asInt(o.Data[counter])
		return ok && n >= minimum
	}
}

func asInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	}
	return 0, false
}
