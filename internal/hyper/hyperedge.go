// Package hyper provides the discrete-dimension abstraction that feeds
// novelty-guided search.
//
// A Hyperedge is a per-state fingerprint mapping dimension names to
// discrete values, inferred best-effort from observation data. The
// Hypergraph indexes Hyperedges by State ID, and DimensionCoverage counts
// never-seen value combinations, the quantity the DimensionNovelty
// strategy minimizes.
package hyper

import (
	"sort"
	"strings"

	"github.com/roach88/wander/internal/obs"
)

// Well-known dimension names and values produced by the extractor library.
const (
	DimAuthStatus = "auth_status"
	DimUserRole   = "user_role"

	AuthAnonymous     = "anonymous"
	AuthAuthenticated = "authenticated"

	CountZero = "zero"
	CountOne  = "one"
	CountMany = "many"
)

// Hyperedge maps dimension name to the discrete value observed for one
// State.
type Hyperedge map[string]string

// FromState infers a Hyperedge from a State's observation data using a
// small library of extractors:
//
//   - boolean-looking "authenticated"/"logged_in" keys -> auth_status
//   - "role" string keys -> user_role
//   - numeric keys containing "count" (or ending in "_total") -> bucketed
//     into zero/one/many under "<key>_class"
//   - "status"/"state" string keys -> passed through lowercased
//
// Extraction is best-effort: unrecognized data is silently omitted, never
// an error. Systems are walked in sorted order and nested objects
// recursively; the first system to claim a dimension wins.
func FromState(s *obs.State) Hyperedge {
	edge := make(Hyperedge)
	for _, system := range s.Systems() {
		extractInto(edge, s.Observations[system].Data)
	}
	return edge
}

func extractInto(edge Hyperedge, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := data[key]
		if nested, ok := value.(map[string]any); ok {
			extractInto(edge, nested)
			continue
		}
		if arr, ok := value.([]any); ok {
			for _, elem := range arr {
				if nested, ok := elem.(map[string]any); ok {
					extractInto(edge, nested)
				}
			}
			continue
		}
		extractScalar(edge, key, value)
	}
}

func extractScalar(edge Hyperedge, key string, value any) {
	lower := strings.ToLower(key)

	if lower == "authenticated" || lower == "logged_in" || strings.HasSuffix(lower, "_authenticated") {
		if b, ok := asBool(value); ok {
			set(edge, DimAuthStatus, authValue(b))
		}
		return
	}

	if lower == "role" || strings.HasSuffix(lower, "_role") {
		if s, ok := value.(string); ok && s != "" {
			set(edge, DimUserRole, strings.ToLower(s))
		}
		return
	}

	if strings.Contains(lower, "count") || strings.HasSuffix(lower, "_total") {
		if n, ok := asNumber(value); ok {
			set(edge, lower+"_class", countClass(n))
		}
		return
	}

	if lower == "status" || lower == "state" || strings.HasSuffix(lower, "_status") {
		if s, ok := value.(string); ok && s != "" {
			set(edge, lower, strings.ToLower(s))
		}
	}
}

// set records a dimension only if no earlier system already claimed it.
func set(edge Hyperedge, dim, value string) {
	if _, ok := edge[dim]; !ok {
		edge[dim] = value
	}
}

func authValue(authenticated bool) string {
	if authenticated {
		return AuthAuthenticated
	}
	return AuthAnonymous
}

func countClass(n float64) string {
	switch {
	case n <= 0:
		return CountZero
	case n < 2:
		return CountOne
	default:
		return CountMany
	}
}

func asBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		if val == "true" {
			return true, true
		}
		if val == "false" {
			return false, true
		}
	}
	return false, false
}

func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	}
	return 0, false
}

// Key returns a canonical string form of the edge, usable as a map key for
// combination counting. Dimensions are sorted.
func (e Hyperedge) Key() string {
	dims := make([]string, 0, len(e))
	for d := range e {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	var b strings.Builder
	for i, d := range dims {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(d)
		b.WriteByte('=')
		b.WriteString(e[d])
	}
	return b.String()
}
