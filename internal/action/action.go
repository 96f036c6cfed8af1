// Package action defines the operations the explorer can execute against
// the system under test, and the captured outcome of each execution.
package action

import (
	"context"
	"time"

	"github.com/roach88/wander/internal/obs"
)

// Result captures the outcome of one Action execution.
//
// Expected SUT failures (a 4xx response, a connection reset) are data, not
// errors: they land in Err/Success and exploration continues. A SUT crash
// is often exactly the bug being searched for.
type Result struct {
	// Request describes the issued request (method + URL or a synthetic
	// description for non-HTTP actions).
	Request string `json:"request"`

	// Response holds the captured response body, if any.
	Response string `json:"response,omitempty"`

	// Status is the HTTP status code, or 0 for non-HTTP actions.
	Status int `json:"status,omitempty"`

	// Err holds the execution error message when the action failed to
	// execute at all. Empty on clean execution.
	Err string `json:"error,omitempty"`

	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`

	// Success is derived from expected-status match or absence of error.
	Success bool `json:"success"`
}

// Failed builds a Result for an action whose execution itself errored.
func Failed(request string, err error, d time.Duration) *Result {
	return &Result{Request: request, Err: err.Error(), Duration: d, Success: false}
}

// Context carries per-run scratch values that actions share across steps,
// such as IDs the SUT assigned to created resources. One Context belongs to
// exactly one exploration run; it is not safe for concurrent use.
type Context struct {
	values map[string]any
}

// NewContext returns an empty run context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores a value under key, replacing any previous value.
func (c *Context) Set(key string, v any) {
	c.values[key] = v
}

// Get returns the value stored under key, or false.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when absent or not
// a string.
func (c *Context) GetString(key string) string {
	if v, ok := c.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Precondition gates whether an Action is executable from a given State.
type Precondition func(s *obs.State, run *Context) bool

// ExecuteFunc performs the action against the API client.
//
// The api parameter is deliberately untyped: any client whose methods yield
// a Result can drive actions, and the core never depends on a concrete
// client type. Implementations type-assert to the client they were written
// against.
type ExecuteFunc func(ctx context.Context, api any, run *Context) (*Result, error)

// Action is one parameterized operation against the system under test.
type Action struct {
	// Name uniquely identifies the action within a run.
	Name string

	// Tags are free-form labels used by weighted strategies and reporters.
	Tags []string

	// Preconditions must all hold for the action to be executable from a
	// given state. An empty slice means always executable.
	Preconditions []Precondition

	// Execute performs the operation. A returned error means the execution
	// itself failed (e.g. network failure); it is captured as a failed
	// Result, never propagated as fatal.
	Execute ExecuteFunc
}

// Enabled reports whether every precondition holds for s.
func (a *Action) Enabled(s *obs.State, run *Context) bool {
	for _, pre := range a.Preconditions {
		if !pre(s, run) {
			return false
		}
	}
	return true
}
