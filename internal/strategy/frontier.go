// Package strategy implements pluggable frontier policies for the
// exploration loop.
//
// The Frontier holds every not-yet-executed (state, action) pair in
// discovery order; a Strategy selects and removes the next pair to try.
//
// Rollback-order compatibility: strategies that jump to arbitrary earlier
// checkpoints (every strategy except DFS) require snapshot-copy adapters.
// Only DFS visits checkpoints in strictly LIFO order and is therefore safe
// on savepoint-style adapters. The World cannot verify this pairing; it is
// a precondition on the configured systems.
package strategy

import (
	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/hyper"
)

// Candidate is one unexplored (state, action) pair.
type Candidate struct {
	StateID    string
	ActionName string
}

// Frontier owns the unexplored candidates plus the lookup tables strategies
// steer by. Candidates keep discovery order; a pair is pushed at most once
// per run.
type Frontier struct {
	pending []Candidate
	seen    map[Candidate]bool

	execCount map[string]int // action name -> executions so far

	graph *graph.Graph
	hg    *hyper.Hypergraph
}

// NewFrontier builds an empty frontier over the run's graph and hypergraph.
func NewFrontier(g *graph.Graph, hg *hyper.Hypergraph) *Frontier {
	return &Frontier{
		seen:      make(map[Candidate]bool),
		execCount: make(map[string]int),
		graph:     g,
		hg:        hg,
	}
}

// Push appends c unless the pair was already discovered this run.
// Returns true when the candidate was added.
func (f *Frontier) Push(c Candidate) bool {
	if f.seen[c] {
		return false
	}
	f.seen[c] = true
	f.pending = append(f.pending, c)
	return true
}

// Requeue puts a previously popped candidate back at the end of the
// frontier, used when its preconditions were stale at pick time.
func (f *Frontier) Requeue(c Candidate) {
	f.pending = append(f.pending, c)
}

// Len returns the number of pending candidates.
func (f *Frontier) Len() int {
	return len(f.pending)
}

// At returns the pending candidate at position i in discovery order.
func (f *Frontier) At(i int) Candidate {
	return f.pending[i]
}

// RemoveAt removes and returns the candidate at position i, preserving the
// order of the remainder.
func (f *Frontier) RemoveAt(i int) Candidate {
	c := f.pending[i]
	f.pending = append(f.pending[:i], f.pending[i+1:]...)
	return c
}

// PopFront removes and returns the oldest candidate.
func (f *Frontier) PopFront() (Candidate, bool) {
	if len(f.pending) == 0 {
		return Candidate{}, false
	}
	return f.RemoveAt(0), true
}

// PopBack removes and returns the newest candidate.
func (f *Frontier) PopBack() (Candidate, bool) {
	if len(f.pending) == 0 {
		return Candidate{}, false
	}
	return f.RemoveAt(len(f.pending) - 1), true
}

// RecordExecution bumps the global execution count for an action name.
// The agent calls this once per executed step.
func (f *Frontier) RecordExecution(actionName string) {
	f.execCount[actionName]++
}

// ExecCount returns how many times the action has been executed this run.
func (f *Frontier) ExecCount(actionName string) int {
	return f.execCount[actionName]
}

// Graph returns the run's graph.
func (f *Frontier) Graph() *graph.Graph {
	return f.graph
}

// Hypergraph returns the run's hyperedge index.
func (f *Frontier) Hypergraph() *hyper.Hypergraph {
	return f.hg
}
