package strategy

import (
	"math/rand"
)

// Strategy selects and removes the next (state, action) pair to explore.
// Returning false means the frontier is exhausted.
type Strategy interface {
	Name() string
	Next(f *Frontier) (Candidate, bool)
}

// BFS explores in FIFO discovery order, yielding shortest-step discovery of
// every reachable state. Requires snapshot-copy adapters: its rollback
// order jumps between branches.
type BFS struct{}

func (BFS) Name() string { return "bfs" }

func (BFS) Next(f *Frontier) (Candidate, bool) {
	return f.PopFront()
}

// DFS explores in LIFO order. It is the only strategy whose rollback order
// is itself LIFO, and therefore the only one safe on savepoint-style
// adapters.
type DFS struct{}

func (DFS) Name() string { return "dfs" }

func (DFS) Next(f *Frontier) (Candidate, bool) {
	return f.PopBack()
}

// Random samples uniformly over the pending candidates. Seeded for
// reproducible runs. Requires snapshot-copy adapters.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a Random strategy with its own seeded source.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (*Random) Name() string { return "random" }

func (r *Random) Next(f *Frontier) (Candidate, bool) {
	if f.Len() == 0 {
		return Candidate{}, false
	}
	return f.RemoveAt(r.rng.Intn(f.Len())), true
}

// CoverageGuided prioritizes the candidate whose action name has been
// executed the fewest times globally, with FIFO tiebreak. Drives action
// coverage toward 100% quickly. Requires snapshot-copy adapters.
type CoverageGuided struct{}

func (CoverageGuided) Name() string { return "coverage" }

func (CoverageGuided) Next(f *Frontier) (Candidate, bool) {
	if f.Len() == 0 {
		return Candidate{}, false
	}
	best := 0
	bestCount := f.ExecCount(f.At(0).ActionName)
	for i := 1; i < f.Len(); i++ {
		if c := f.ExecCount(f.At(i).ActionName); c < bestCount {
			best, bestCount = i, c
		}
	}
	return f.RemoveAt(best), true
}

// Weighted samples candidates proportional to user-supplied per-action
// weights. Actions without a configured weight default to 1. Requires
// snapshot-copy adapters.
type Weighted struct {
	weights map[string]float64
	rng     *rand.Rand
}

// NewWeighted returns a Weighted strategy. The weights map is copied.
func NewWeighted(weights map[string]float64, seed int64) *Weighted {
	copied := make(map[string]float64, len(weights))
	for k, v := range weights {
		copied[k] = v
	}
	return &Weighted{weights: copied, rng: rand.New(rand.NewSource(seed))}
}

func (*Weighted) Name() string { return "weighted" }

func (w *Weighted) weight(actionName string) float64 {
	if wt, ok := w.weights[actionName]; ok && wt > 0 {
		return wt
	}
	if _, ok := w.weights[actionName]; ok {
		return 0
	}
	return 1
}

func (w *Weighted) Next(f *Frontier) (Candidate, bool) {
	if f.Len() == 0 {
		return Candidate{}, false
	}
	total := 0.0
	for i := 0; i < f.Len(); i++ {
		total += w.weight(f.At(i).ActionName)
	}
	if total <= 0 {
		// All candidates weighted to zero: fall back to FIFO rather than
		// spinning forever.
		return f.PopFront()
	}
	target := w.rng.Float64() * total
	acc := 0.0
	for i := 0; i < f.Len(); i++ {
		acc += w.weight(f.At(i).ActionName)
		if target < acc {
			return f.RemoveAt(i), true
		}
	}
	return f.PopBack()
}

// DimensionNovelty prioritizes the candidate whose source state's hyperedge
// combination is least-seen in the hypergraph, with FIFO tiebreak. States
// with no indexed edge count as never-seen. Requires snapshot-copy
// adapters.
type DimensionNovelty struct{}

func (DimensionNovelty) Name() string { return "dimension-novelty" }

func (DimensionNovelty) Next(f *Frontier) (Candidate, bool) {
	if f.Len() == 0 {
		return Candidate{}, false
	}
	hg := f.Hypergraph()
	score := func(c Candidate) int {
		edge, ok := hg.Edge(c.StateID)
		if !ok {
			return 0
		}
		return hg.CombinationCount(edge)
	}
	best := 0
	bestScore := score(f.At(0))
	for i := 1; i < f.Len(); i++ {
		if s := score(f.At(i)); s < bestScore {
			best, bestScore = i, s
		}
	}
	return f.RemoveAt(best), true
}
