// Package agent drives the exploration loop: ask the strategy for a
// frontier candidate, roll the World back to that branch point, execute
// the action, commit the observed state, and check invariants.
//
// Scheduling is single-threaded and strictly sequential within one
// Explore call: each step completes before the next begins, because a
// step's rollback decision depends on the prior step's committed graph.
// Independent Agents may run concurrently on disjoint Worlds; the package
// places no barrier across runs.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/hyper"
	"github.com/roach88/wander/internal/invariant"
	"github.com/roach88/wander/internal/obs"
	"github.com/roach88/wander/internal/shrink"
	"github.com/roach88/wander/internal/strategy"
	"github.com/roach88/wander/internal/world"
)

// DefaultMaxSteps bounds a run that never exhausts its frontier.
const DefaultMaxSteps = 1000

// minStaleRetries is the floor of the per-step stale-candidate skip bound.
// The bound itself scales with frontier size: skipping more candidates
// than twice the frontier holds means every remaining pair is stale and
// the frontier is effectively exhausted.
const minStaleRetries = 8

// Agent composes the World, the declared actions and invariants, and a
// frontier strategy into one exploration run.
type Agent struct {
	world      *world.World
	actions    []*action.Action
	byName     map[string]*action.Action
	invariants []invariant.Invariant
	strat      strategy.Strategy

	maxSteps       int
	coverageTarget float64
	shrinkEnabled  bool

	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxSteps sets the step budget. Values <= 0 restore the default.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n <= 0 {
			n = DefaultMaxSteps
		}
		a.maxSteps = n
	}
}

// WithCoverageTarget stops the run once the given fraction (0..1] of
// declared actions appears on at least one transition. Zero disables the
// target.
func WithCoverageTarget(fraction float64) Option {
	return func(a *Agent) { a.coverageTarget = fraction }
}

// WithShrink enables ddmin minimization of violation reproduction paths.
// Shrinking replays from the initial checkpoint and therefore requires
// snapshot-copy adapters.
func WithShrink(enabled bool) Option {
	return func(a *Agent) { a.shrinkEnabled = enabled }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithClock overrides the wall clock used for durations and violation
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New builds an Agent. Action names must be unique within a run.
func New(w *world.World, actions []*action.Action, invariants []invariant.Invariant, strat strategy.Strategy, opts ...Option) (*Agent, error) {
	byName := make(map[string]*action.Action, len(actions))
	for _, a := range actions {
		if a.Name == "" {
			return nil, fmt.Errorf("action with empty name")
		}
		if _, dup := byName[a.Name]; dup {
			return nil, fmt.Errorf("duplicate action name %q", a.Name)
		}
		byName[a.Name] = a
	}

	ag := &Agent{
		world:      w,
		actions:    actions,
		byName:     byName,
		invariants: invariants,
		strat:      strat,
		maxSteps:   DefaultMaxSteps,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ag)
	}
	return ag, nil
}

// Explore runs the loop until the step budget, coverage target, frontier,
// or context says stop.
//
// Termination is always graceful: the returned result carries the partial
// graph and all violations gathered so far even on cutoff. The error is
// non-nil only for fatal conditions (an adapter rollback failure or a
// broken initial observation); the result is still populated alongside it.
func (a *Agent) Explore(ctx context.Context) (*ExplorationResult, error) {
	start := a.now()
	g := graph.New()
	hg := hyper.NewHypergraph()
	frontier := strategy.NewFrontier(g, hg)

	result := &ExplorationResult{Graph: g, Hypergraph: hg}
	finish := func(reason TerminationReason) *ExplorationResult {
		result.Termination = reason
		result.StatesVisited = g.StateCount()
		result.CoveragePercent = g.Coverage(a.declaredNames()) * 100
		result.UniqueViolations = invariant.Dedup(result.Violations)
		result.Duration = a.now().Sub(start)
		result.Success = len(result.Violations) == 0 && !result.RollbackFailed
		return result
	}

	initial, err := a.world.ObserveAndCheckpoint(ctx, "")
	if err != nil {
		return finish(TerminatedFrontierExhausted), fmt.Errorf("initial observation: %w", err)
	}
	g.AddState(initial)
	hg.Add(initial.ID, hyper.FromState(initial))
	a.pushCandidates(frontier, initial.ID)

	shrinker := shrink.New(a.world, a.byName, initial.CheckpointID, a.logger)

	a.logger.Info("exploration started",
		"strategy", a.strat.Name(), "actions", len(a.actions),
		"invariants", len(a.invariants), "max_steps", a.maxSteps)

	steps := 0
	for {
		// Single cooperative cancellation point: a step once started
		// always finishes, so the World is never left half-stepped.
		if ctx.Err() != nil {
			return finish(TerminatedCancelled), nil
		}
		if steps >= a.maxSteps {
			result.TruncatedByMaxSteps = true
			return finish(TerminatedMaxSteps), nil
		}
		if a.coverageTarget > 0 && g.Coverage(a.declaredNames()) >= a.coverageTarget {
			return finish(TerminatedCoverageTarget), nil
		}

		cand, state, act, ok := a.pick(frontier, g)
		if !ok {
			return finish(TerminatedFrontierExhausted), nil
		}

		// Revisit the branch point without re-executing its prefix.
		if a.world.LiveStateID() != state.ID {
			if err := a.world.RollbackTo(ctx, state.CheckpointID); err != nil {
				result.RollbackFailed = true
				res := finish(TerminatedRollbackFailure)
				return res, fmt.Errorf("step %d: %w", steps, err)
			}
		}

		actRes := a.world.Act(ctx, act)
		newState, err := a.world.ObserveAndCheckpoint(ctx, "")
		if err != nil {
			return finish(TerminatedFrontierExhausted), fmt.Errorf("step %d: observe: %w", steps, err)
		}
		if !g.AddState(newState) {
			// Known content: keep the canonical node and its original
			// checkpoint so savepoint-style adapters see a stable target.
			newState, _ = g.State(newState.ID)
		} else {
			hg.Add(newState.ID, hyper.FromState(newState))
			a.pushCandidates(frontier, newState.ID)
		}
		g.AddTransition(graph.NewTransition(state.ID, act.Name, newState.ID, actRes))
		frontier.RecordExecution(act.Name)
		steps++
		result.TransitionsTaken++

		a.logger.Debug("step committed",
			"step", steps, "action", act.Name, "from", short(cand.StateID), "to", short(newState.ID),
			"new_state", newState.ID != cand.StateID)

		// Invariants run against the live World before any shrink replay
		// can move it.
		violations := a.checkInvariants(initial.ID, newState, act.Name, g)
		for i := range violations {
			if a.shrinkEnabled && len(violations[i].Path) > 1 {
				shrunk, err := shrinker.Shrink(ctx, violations[i], a.invariantByName(violations[i].Invariant))
				if err != nil {
					result.Violations = append(result.Violations, violations[i:]...)
					result.RollbackFailed = true
					res := finish(TerminatedRollbackFailure)
					return res, fmt.Errorf("shrink: %w", err)
				}
				violations[i].Path = shrunk
			}
			result.Violations = append(result.Violations, violations[i])
			a.logger.Warn("invariant violated",
				"invariant", violations[i].Invariant, "severity", violations[i].Severity.String(),
				"action", violations[i].ActionName, "path_len", len(violations[i].Path))
		}
	}
}

// pick asks the strategy for the next candidate, skipping stale pairs
// whose preconditions no longer hold. Skipped candidates are requeued once
// a viable pick is found; if the per-step skip bound is hit the frontier
// is declared exhausted.
func (a *Agent) pick(frontier *strategy.Frontier, g *graph.Graph) (strategy.Candidate, *obs.State, *action.Action, bool) {
	bound := 2 * frontier.Len()
	if bound < minStaleRetries {
		bound = minStaleRetries
	}

	var stale []strategy.Candidate
	defer func() {
		for _, c := range stale {
			frontier.Requeue(c)
		}
	}()

	for skips := 0; skips < bound; skips++ {
		cand, ok := a.strat.Next(frontier)
		if !ok {
			return strategy.Candidate{}, nil, nil, false
		}
		state, ok := g.State(cand.StateID)
		if !ok {
			// Cannot happen for candidates we pushed; treat as stale.
			continue
		}
		act, ok := a.byName[cand.ActionName]
		if !ok {
			continue
		}
		if !act.Enabled(state, a.world.RunContext()) {
			stale = append(stale, cand)
			continue
		}
		return cand, state, act, true
	}
	return strategy.Candidate{}, nil, nil, false
}

// checkInvariants evaluates every post-action invariant against the live
// World and synthesizes violations with the shortest known reproduction
// path from the initial state.
func (a *Agent) checkInvariants(initialID string, state *obs.State, actionName string, g *graph.Graph) []invariant.Violation {
	var out []invariant.Violation
	for _, inv := range a.invariants {
		if inv.Timing != invariant.PostAction {
			continue
		}
		ok, err := inv.Check(a.world)
		switch {
		case err != nil:
			out = append(out, invariant.NewCheckErrorViolation(
				inv, err, state.ID, actionName, a.shortestPath(g, initialID, state.ID), a.now()))
		case !ok:
			out = append(out, invariant.NewViolation(
				inv, state.ID, actionName, a.shortestPath(g, initialID, state.ID), a.now()))
		}
	}
	return out
}

// shortestPath is the reproduction path recorded on a violation: the
// shortest route over everything the graph knows, which may be shorter
// than the walk that just happened.
func (a *Agent) shortestPath(g *graph.Graph, fromID, toID string) []graph.Transition {
	if path := g.ShortestPath(fromID, toID); path != nil {
		return path
	}
	// The violating state was just committed, so it is always reachable;
	// nil only happens for a violation at the initial state itself.
	return []graph.Transition{}
}

func (a *Agent) pushCandidates(frontier *strategy.Frontier, stateID string) {
	for _, act := range a.actions {
		frontier.Push(strategy.Candidate{StateID: stateID, ActionName: act.Name})
	}
}

func (a *Agent) declaredNames() []string {
	names := make([]string, 0, len(a.actions))
	for _, act := range a.actions {
		names = append(names, act.Name)
	}
	return names
}

func (a *Agent) invariantByName(name string) invariant.Invariant {
	for _, inv := range a.invariants {
		if inv.Name == name {
			return inv
		}
	}
	return invariant.Invariant{Name: name, Check: func(*world.World) (bool, error) { return true, nil }}
}

func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
