// Package graph stores every State and Transition seen in one exploration
// run.
//
// Storage is arena-style: the Graph owns all States and Transitions by ID,
// and Transitions reference their endpoints by State ID only, never by live
// pointer. This avoids reference cycles in a structure that itself contains
// cycles, and makes structural dedup an O(1) map lookup.
//
// A run's Graph is append-only: States and Transitions are created once by
// the World/Agent and never mutated.
package graph

import (
	"fmt"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/obs"
)

// DomainTransition is the domain prefix for content-addressed Transition
// identity.
const DomainTransition = "wander/transition/v1"

// Transition is one edge: executing an action from one State produced
// another. Endpoints are referenced by State ID only.
type Transition struct {
	ID          string         `json:"id"`
	FromStateID string         `json:"from_state_id"`
	ActionName  string         `json:"action_name"`
	ToStateID   string         `json:"to_state_id"`
	Result      *action.Result `json:"result,omitempty"`
}

// TransitionID computes the content-addressed ID for a transition. Identity
// is structural, keyed by (from, action, to), so re-walking a known edge dedups to
// the existing Transition regardless of response timing differences.
func TransitionID(fromStateID, actionName, toStateID string) string {
	canonical, err := obs.MarshalCanonical(map[string]any{
		"from":   fromStateID,
		"action": actionName,
		"to":     toStateID,
	})
	if err != nil {
		// The three inputs are plain strings; canonical marshaling of
		// strings cannot fail.
		panic(fmt.Sprintf("TransitionID: %v", err))
	}
	return obs.Hash(DomainTransition, canonical)
}

// NewTransition builds a Transition with its content-addressed ID.
func NewTransition(fromStateID, actionName, toStateID string, result *action.Result) Transition {
	return Transition{
		ID:          TransitionID(fromStateID, actionName, toStateID),
		FromStateID: fromStateID,
		ActionName:  actionName,
		ToStateID:   toStateID,
		Result:      result,
	}
}

// Graph is the deduplicated store of all States and Transitions in a run.
// Not safe for concurrent use; one Graph belongs to one Agent.
type Graph struct {
	states     map[string]*obs.State
	stateOrder []string

	transitions []Transition
	transIndex  map[string]int

	outgoing map[string][]int // from-state ID -> indexes into transitions
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		states:     make(map[string]*obs.State),
		transIndex: make(map[string]int),
		outgoing:   make(map[string][]int),
	}
}

// AddState records s unless a State with identical content already exists.
// Returns true when s is new. Repeats map to the existing node; this is the
// dedup that "states visited" and action coverage are computed against.
func (g *Graph) AddState(s *obs.State) bool {
	if _, ok := g.states[s.ID]; ok {
		return false
	}
	g.states[s.ID] = s
	g.stateOrder = append(g.stateOrder, s.ID)
	return true
}

// State returns the stored State for id, or false.
func (g *Graph) State(id string) (*obs.State, bool) {
	s, ok := g.states[id]
	return s, ok
}

// States returns all States in stable insertion order.
func (g *Graph) States() []*obs.State {
	out := make([]*obs.State, 0, len(g.stateOrder))
	for _, id := range g.stateOrder {
		out = append(out, g.states[id])
	}
	return out
}

// StateCount returns the number of distinct States.
func (g *Graph) StateCount() int {
	return len(g.states)
}

// AddTransition records t unless a structurally identical edge exists.
// Returns true when t is new.
func (g *Graph) AddTransition(t Transition) bool {
	if _, ok := g.transIndex[t.ID]; ok {
		return false
	}
	idx := len(g.transitions)
	g.transitions = append(g.transitions, t)
	g.transIndex[t.ID] = idx
	g.outgoing[t.FromStateID] = append(g.outgoing[t.FromStateID], idx)
	return true
}

// Transitions returns all Transitions in stable insertion order.
func (g *Graph) Transitions() []Transition {
	out := make([]Transition, len(g.transitions))
	copy(out, g.transitions)
	return out
}

// TransitionCount returns the number of distinct Transitions.
func (g *Graph) TransitionCount() int {
	return len(g.transitions)
}

// Outgoing returns the transitions leaving the given State, in insertion
// order.
func (g *Graph) Outgoing(stateID string) []Transition {
	idxs := g.outgoing[stateID]
	out := make([]Transition, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.transitions[i])
	}
	return out
}

// Coverage returns the fraction of declared action names that appear on at
// least one Transition. Declared names never seen count against coverage;
// an empty declaration yields 1.0.
func (g *Graph) Coverage(declared []string) float64 {
	if len(declared) == 0 {
		return 1.0
	}
	seen := make(map[string]bool, len(g.transitions))
	for _, t := range g.transitions {
		seen[t.ActionName] = true
	}
	covered := 0
	for _, name := range declared {
		if seen[name] {
			covered++
		}
	}
	return float64(covered) / float64(len(declared))
}

// ShortestPath returns the fewest-transition path from fromID to toID using
// breadth-first search over the stored edges. Returns an empty slice when
// fromID == toID and nil when toID is unreachable.
//
// Edge tiebreaks follow insertion order, so the returned path is stable for
// a given Graph.
func (g *Graph) ShortestPath(fromID, toID string) []Transition {
	if fromID == toID {
		return []Transition{}
	}

	// parent[to] = index of the transition that first reached it.
	parent := make(map[string]int)
	visited := map[string]bool{fromID: true}
	queue := []string{fromID}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, idx := range g.outgoing[cur] {
			t := g.transitions[idx]
			if visited[t.ToStateID] {
				continue
			}
			visited[t.ToStateID] = true
			parent[t.ToStateID] = idx
			if t.ToStateID == toID {
				return g.rebuildPath(fromID, toID, parent)
			}
			queue = append(queue, t.ToStateID)
		}
	}
	return nil
}

func (g *Graph) rebuildPath(fromID, toID string, parent map[string]int) []Transition {
	var reversed []Transition
	cur := toID
	for cur != fromID {
		idx, ok := parent[cur]
		if !ok {
			return nil
		}
		t := g.transitions[idx]
		reversed = append(reversed, t)
		cur = t.FromStateID
	}
	path := make([]Transition, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}
