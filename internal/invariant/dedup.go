package invariant

import "sort"

// Dedup groups violations by (invariant name, triggering action name) and
// keeps one representative per group: the entry with the shortest
// reproduction path, with ties broken by earliest discovery.
//
// The result is sorted severity-descending, then path-length-ascending,
// then by invariant name for a stable order.
func Dedup(violations []Violation) []Violation {
	type key struct {
		invariant string
		action    string
	}

	best := make(map[key]int) // key -> index into violations
	var order []key
	for i, v := range violations {
		k := key{invariant: v.Invariant, action: v.ActionName}
		prev, ok := best[k]
		if !ok {
			best[k] = i
			order = append(order, k)
			continue
		}
		// Strictly shorter wins; equal length keeps the earlier discovery.
		if len(v.Path) < len(violations[prev].Path) {
			best[k] = i
		}
	}

	unique := make([]Violation, 0, len(order))
	for _, k := range order {
		unique = append(unique, violations[best[k]])
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].Severity != unique[j].Severity {
			return unique[i].Severity > unique[j].Severity
		}
		if len(unique[i].Path) != len(unique[j].Path) {
			return len(unique[i].Path) < len(unique[j].Path)
		}
		return unique[i].Invariant < unique[j].Invariant
	})
	return unique
}
