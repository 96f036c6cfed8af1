package obs

import "time"

// Observation is one system's snapshot of its own data.
// Observations are immutable after construction: Data must not be mutated
// by callers once the Observation has been handed to a State.
type Observation struct {
	// System is the registered name of the system that produced this
	// observation (e.g. "db", "cache", "mail").
	System string `json:"system"`

	// Data holds the observed content. Values must be representable in
	// canonical JSON: strings, bools, integers, floats, nil, []any, and
	// map[string]any. Anything else fails hashing.
	Data map[string]any `json:"data"`

	// ObservedAt records when the observation was taken. It is excluded
	// from content hashing: identity is content, not time.
	ObservedAt time.Time `json:"observed_at"`
}

// NewObservation builds an Observation stamped with the given time.
func NewObservation(system string, data map[string]any, at time.Time) Observation {
	return Observation{System: system, Data: data, ObservedAt: at}
}
