package hyper

import "sort"

// Hypergraph indexes the Hyperedge of every State seen in a run.
// Not safe for concurrent use; one Hypergraph belongs to one Agent.
type Hypergraph struct {
	edges map[string]Hyperedge // state ID -> edge
	order []string             // insertion order

	combos map[string]int // edge key -> occurrence count
}

// NewHypergraph returns an empty index.
func NewHypergraph() *Hypergraph {
	return &Hypergraph{
		edges:  make(map[string]Hyperedge),
		combos: make(map[string]int),
	}
}

// Add indexes the edge for stateID. Re-adding a known state is a no-op, so
// revisits of deduplicated States do not inflate combination counts.
func (h *Hypergraph) Add(stateID string, edge Hyperedge) {
	if _, ok := h.edges[stateID]; ok {
		return
	}
	h.edges[stateID] = edge
	h.order = append(h.order, stateID)
	h.combos[edge.Key()]++
}

// Edge returns the Hyperedge indexed for stateID, or false.
func (h *Hypergraph) Edge(stateID string) (Hyperedge, bool) {
	e, ok := h.edges[stateID]
	return e, ok
}

// Len returns the number of indexed states.
func (h *Hypergraph) Len() int {
	return len(h.order)
}

// QueryByDimension returns the IDs of states whose edge has the given
// dimension value, in insertion order.
func (h *Hypergraph) QueryByDimension(dim, value string) []string {
	var out []string
	for _, id := range h.order {
		if h.edges[id][dim] == value {
			out = append(out, id)
		}
	}
	return out
}

// AllDimensions returns every dimension name seen across all edges, sorted.
func (h *Hypergraph) AllDimensions() []string {
	seen := make(map[string]bool)
	for _, e := range h.edges {
		for d := range e {
			seen[d] = true
		}
	}
	dims := make([]string, 0, len(seen))
	for d := range seen {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

// AllValues returns the distinct values seen for dim, sorted.
func (h *Hypergraph) AllValues(dim string) []string {
	seen := make(map[string]bool)
	for _, e := range h.edges {
		if v, ok := e[dim]; ok {
			seen[v] = true
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// CombinationCount returns how many indexed states share exactly this
// edge's dimension combination. Zero means never seen, maximally novel.
func (h *Hypergraph) CombinationCount(edge Hyperedge) int {
	return h.combos[edge.Key()]
}
