package hyper

import "sort"

// DimensionCoverage summarizes, per dimension, the observed value set and
// how many combinations across the cartesian product of all observed value
// sets have never been seen together.
type DimensionCoverage struct {
	// Values maps each dimension to its sorted observed value set.
	Values map[string][]string

	// ObservedCombinations is the number of distinct complete dimension
	// tuples seen. States missing one of the dimensions are excluded from
	// tuple counting.
	ObservedCombinations int

	// UnseenCombinations is |cartesian product of value sets| minus
	// ObservedCombinations. This is the quantity novelty-guided search
	// drives toward zero.
	UnseenCombinations int
}

// FromHypergraph computes coverage over everything the index has seen.
func FromHypergraph(h *Hypergraph) DimensionCoverage {
	dims := h.AllDimensions()

	cov := DimensionCoverage{Values: make(map[string][]string, len(dims))}
	product := 1
	for _, d := range dims {
		values := h.AllValues(d)
		cov.Values[d] = values
		product *= len(values)
	}
	if len(dims) == 0 {
		return cov
	}

	complete := make(map[string]bool)
	for _, id := range h.order {
		edge := h.edges[id]
		if key, ok := completeKey(edge, dims); ok {
			complete[key] = true
		}
	}
	cov.ObservedCombinations = len(complete)
	cov.UnseenCombinations = product - len(complete)
	return cov
}

// completeKey returns a canonical key for the edge's tuple over dims, or
// false if the edge is missing any dimension.
func completeKey(edge Hyperedge, dims []string) (string, bool) {
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		v, ok := edge[d]
		if !ok {
			return "", false
		}
		parts = append(parts, d+"="+v)
	}
	sort.Strings(parts)
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += ";"
		}
		key += p
	}
	return key, true
}
