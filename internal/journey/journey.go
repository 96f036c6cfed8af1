// Package journey loads exploration journeys from CUE files. A journey
// declares the HTTP actions the explorer may take against the system
// under test and the invariants that must hold in every reached state.
package journey

// Journey is one loaded journey declaration.
type Journey struct {
	Name       string
	Actions    []ActionDecl
	Invariants []InvariantDecl
}

// ActionDecl declares one HTTP action.
type ActionDecl struct {
	// Name identifies the action in graphs, paths, and reports.
	Name string `json:"name"`

	Method string `json:"method"`
	Path   string `json:"path"`

	// Body, when present, is sent as the JSON request body.
	Body map[string]any `json:"body,omitempty"`

	// Expect lists status codes counted as success. Empty means any
	// status below 400.
	Expect []int `json:"expect,omitempty"`

	Tags []string `json:"tags,omitempty"`

	// Requires gates the action on observed state.
	Requires []RequireDecl `json:"requires,omitempty"`
}

// RequireDecl is a precondition on the observed state of one system.
// Path is a dot-separated key path into the system's observation data.
// Exactly one of Min or Equals should be set.
type RequireDecl struct {
	System string `json:"system"`
	Path   string `json:"path"`
	Min    *int   `json:"min,omitempty"`
	Equals any    `json:"equals,omitempty"`
}

// Invariant check kinds.
const (
	KindNonNegative = "non_negative" // numeric value at path must be >= 0
	KindAtMost      = "at_most"      // numeric value at path must be <= value
	KindEquals      = "equals"       // value at path must equal value
)

// InvariantDecl declares one invariant over observed state.
type InvariantDecl struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	System   string `json:"system"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Value    any    `json:"value,omitempty"`
}
