package world

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/obs"
)

// Rollbackable is the minimal contract a backing store must implement to
// participate in exploration. Any store with this triplet registers into
// the World under a unique system name.
//
// Handles are opaque to the core: a savepoint name, a snapshot key, a
// serialized blob reference. The World only stores and replays them.
type Rollbackable interface {
	// Checkpoint captures the store's current content under the given name
	// and returns an opaque handle for later rollback.
	Checkpoint(ctx context.Context, name string) (handle string, err error)

	// Rollback restores the content captured under handle. After a
	// successful rollback, Observe must return content identical to the
	// observation taken at checkpoint time.
	Rollback(ctx context.Context, handle string) error

	// Observe returns the store's current content.
	Observe(ctx context.Context) (obs.Observation, error)
}

// Checkpoint bundles one handle per registered system, taken together for
// a single State. A Checkpoint is 1:1 with the State it was taken for.
type Checkpoint struct {
	ID      string
	StateID string
	Handles map[string]string // system name -> opaque handle
	TakenAt time.Time
}

// IDGenerator produces checkpoint IDs. Implemented by UUIDv7Generator
// (production) and testutil.FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 IDs. Stateless and safe
// for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// World owns the live system under test: one API client plus N registered
// Rollbackable systems, coordinated as one atomic unit.
//
// One World is mutated by exactly one Agent at a time; concurrent Act
// calls against the same World are undefined.
type World struct {
	api     any
	names   []string // registration order, preserved for observe/checkpoint
	systems map[string]Rollbackable

	checkpoints map[string]*Checkpoint
	liveStateID string
	lastResult  *action.Result
	run         *action.Context

	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a World.
type Option func(*World)

// WithIDGenerator overrides checkpoint ID generation (for deterministic
// tests).
func WithIDGenerator(g IDGenerator) Option {
	return func(w *World) { w.ids = g }
}

// WithClock overrides the wall clock used to stamp observations and
// checkpoints.
func WithClock(now func() time.Time) Option {
	return func(w *World) { w.now = now }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *World) { w.logger = l }
}

// New creates a World around the given API client. The client is handed
// untyped to Action.Execute; the core never depends on its concrete type.
func New(api any, opts ...Option) *World {
	w := &World{
		api:         api,
		systems:     make(map[string]Rollbackable),
		checkpoints: make(map[string]*Checkpoint),
		run:         action.NewContext(),
		ids:         UUIDv7Generator{},
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register adds a Rollbackable system under name. Registration order is
// preserved: observe and checkpoint walk systems in the order they were
// registered, so adapter-side effects are deterministic.
func (w *World) Register(name string, sys Rollbackable) error {
	if _, ok := w.systems[name]; ok {
		return fmt.Errorf("system %q already registered", name)
	}
	w.names = append(w.names, name)
	w.systems[name] = sys
	return nil
}

// Systems returns the registered system names in registration order.
func (w *World) Systems() []string {
	out := make([]string, len(w.names))
	copy(out, w.names)
	return out
}

// RunContext returns the per-run scratch context shared by actions.
func (w *World) RunContext() *action.Context {
	return w.run
}

// Observe queries every registered system and assembles a content-addressed
// State. The returned State carries no checkpoint; use ObserveAndCheckpoint
// to commit a new reachable point.
func (w *World) Observe(ctx context.Context) (*obs.State, error) {
	observations := make(map[string]obs.Observation, len(w.names))
	for _, name := range w.names {
		o, err := w.systems[name].Observe(ctx)
		if err != nil {
			return nil, fmt.Errorf("observe system %q: %w", name, err)
		}
		o.System = name
		o.ObservedAt = w.now()
		observations[name] = o
	}
	s, err := obs.NewState(observations)
	if err != nil {
		return nil, fmt.Errorf("assemble state: %w", err)
	}
	w.liveStateID = s.ID
	return s, nil
}

// Checkpoint calls checkpoint on every system and bundles the handles.
// If name is empty, a generated ID is used for both the bundle ID and the
// per-system checkpoint name.
func (w *World) Checkpoint(ctx context.Context, name string) (*Checkpoint, error) {
	if name == "" {
		name = w.ids.Generate()
	}
	cp := &Checkpoint{
		ID:      name,
		Handles: make(map[string]string, len(w.names)),
		TakenAt: w.now(),
	}
	for _, sysName := range w.names {
		handle, err := w.systems[sysName].Checkpoint(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("checkpoint system %q: %w", sysName, err)
		}
		cp.Handles[sysName] = handle
	}
	w.checkpoints[cp.ID] = cp
	return cp, nil
}

// LookupCheckpoint returns the stored bundle for id, or false.
func (w *World) LookupCheckpoint(id string) (*Checkpoint, bool) {
	cp, ok := w.checkpoints[id]
	return cp, ok
}

// RollbackTo restores every system to the bundle stored under checkpointID.
// Any single system failing is fatal for the run: the error is a
// *RollbackError and the caller must stop exploring, because a partial
// rollback leaves the World in unknown-consistency state.
func (w *World) RollbackTo(ctx context.Context, checkpointID string) error {
	cp, ok := w.checkpoints[checkpointID]
	if !ok {
		return &RollbackError{
			CheckpointID: checkpointID,
			Err:          fmt.Errorf("unknown checkpoint"),
		}
	}
	for _, name := range w.names {
		handle, ok := cp.Handles[name]
		if !ok {
			return &RollbackError{
				System:       name,
				CheckpointID: checkpointID,
				Err:          fmt.Errorf("no handle recorded for system"),
			}
		}
		if err := w.systems[name].Rollback(ctx, handle); err != nil {
			return &RollbackError{System: name, CheckpointID: checkpointID, Err: err}
		}
	}
	w.liveStateID = cp.StateID
	w.logger.Debug("world rolled back", "checkpoint", checkpointID, "state", cp.StateID)
	return nil
}

// Act executes the action against the API client. Execution errors (network
// failure, SUT crash) are captured as a failed result, never propagated:
// a crashing SUT is often exactly the bug being searched for.
//
// The result is stored as the last action result for post-action invariant
// checks within the same step.
func (w *World) Act(ctx context.Context, a *action.Action) *action.Result {
	start := w.now()
	res, err := a.Execute(ctx, w.api, w.run)
	elapsed := w.now().Sub(start)
	if err != nil {
		res = action.Failed(a.Name, err, elapsed)
	} else if res == nil {
		res = &action.Result{Request: a.Name, Duration: elapsed, Success: true}
	} else if res.Duration == 0 {
		res.Duration = elapsed
	}
	w.lastResult = res
	w.logger.Debug("action executed",
		"action", a.Name, "success", res.Success, "duration", res.Duration)
	return res
}

// LastActionResult returns the result of the most recent Act, or nil before
// the first action. It is set synchronously by Act and meant to be read
// only within the same step.
func (w *World) LastActionResult() *action.Result {
	return w.lastResult
}

// LiveStateID returns the content hash of the most recently observed or
// rolled-back-to State. Empty before the first Observe.
func (w *World) LiveStateID() string {
	return w.liveStateID
}

// ObserveAndCheckpoint is the agent's atomic "commit a new reachable point"
// primitive: observe all systems, checkpoint them, and link the checkpoint
// to the assembled State.
func (w *World) ObserveAndCheckpoint(ctx context.Context, name string) (*obs.State, error) {
	s, err := w.Observe(ctx)
	if err != nil {
		return nil, err
	}
	cp, err := w.Checkpoint(ctx, name)
	if err != nil {
		return nil, err
	}
	cp.StateID = s.ID
	s.CheckpointID = cp.ID
	return s, nil
}
