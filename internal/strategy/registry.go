package strategy

import "fmt"

// Names lists the built-in strategies in the order they are documented.
var Names = []string{"bfs", "dfs", "random", "coverage", "weighted", "dimension-novelty"}

// New constructs a built-in strategy by name. seed feeds the randomized
// strategies; weights feeds "weighted" and is ignored otherwise.
func New(name string, seed int64, weights map[string]float64) (Strategy, error) {
	switch name {
	case "bfs":
		return BFS{}, nil
	case "dfs":
		return DFS{}, nil
	case "random":
		return NewRandom(seed), nil
	case "coverage":
		return CoverageGuided{}, nil
	case "weighted":
		return NewWeighted(weights, seed), nil
	case "dimension-novelty":
		return DimensionNovelty{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q: must be one of %v", name, Names)
	}
}
