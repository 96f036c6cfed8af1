// Package invariant defines safety predicates checked against the live
// World after each step, and the Violations captured when they fail.
package invariant

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/world"
)

// Severity ranks violations. Ordering matters: higher values sort first in
// unique-violation output.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the canonical upper-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityLow:
		return "LOW"
	case SeverityInfo:
		return "INFO"
	default:
		return fmt.Sprintf("SEVERITY(%d)", int(s))
	}
}

// Escalate returns the next-higher severity. CRITICAL stays CRITICAL.
// Used when an invariant check errors instead of returning a verdict: a
// broken check is worse than the failure it was looking for.
func (s Severity) Escalate() Severity {
	if s >= SeverityCritical {
		return SeverityCritical
	}
	return s + 1
}

// ParseSeverity converts a severity name (case-sensitive, upper-case) to a
// Severity.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "CRITICAL":
		return SeverityCritical, nil
	case "HIGH":
		return SeverityHigh, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "LOW":
		return SeverityLow, nil
	case "INFO":
		return SeverityInfo, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", name)
	}
}

// Timing controls when an invariant is evaluated.
type Timing int

const (
	// PostAction invariants run after every committed step. This is the
	// only timing the agent currently schedules.
	PostAction Timing = iota

	// PreRun invariants are accepted but reserved for a future setup
	// validation pass.
	PreRun
)

// CheckFunc evaluates the invariant against the currently live World.
// Returning (false, nil) is a violation. Returning a non-nil error means
// the check itself is broken; it is converted into a Violation with
// escalated severity, never silently swallowed.
type CheckFunc func(w *world.World) (bool, error)

// Invariant is a named safety predicate.
type Invariant struct {
	Name     string
	Check    CheckFunc
	Message  string
	Severity Severity
	Timing   Timing
}

// Violation is one captured counterexample: an invariant that failed at a
// reachable state, with the path that reproduces it.
type Violation struct {
	// ID is a time-sortable UUIDv7 assigned at capture time.
	ID string `json:"id"`

	// Invariant is the name of the failed invariant.
	Invariant string `json:"invariant"`

	// StateID is the content hash of the violating State.
	StateID string `json:"state_id"`

	// Message describes the failure; for check errors it embeds the error
	// text.
	Message string `json:"message"`

	Severity Severity `json:"severity"`

	// ActionName is the action whose execution triggered the check.
	ActionName string `json:"action"`

	// Path is the ordered reproduction path from the initial State to the
	// violating State. Not necessarily the path that was just walked: the
	// agent records the shortest known path, and shrinking may replace it
	// with a shorter, re-verified one.
	Path []graph.Transition `json:"reproduction_path"`

	// CheckErrored is true when the violation came from a check that
	// returned an error rather than a verdict.
	CheckErrored bool `json:"check_errored,omitempty"`

	DetectedAt time.Time `json:"detected_at"`
}

// NewViolation captures a failed invariant at the given state.
func NewViolation(inv Invariant, stateID, actionName string, path []graph.Transition, at time.Time) Violation {
	msg := inv.Message
	if msg == "" {
		msg = fmt.Sprintf("invariant %s violated", inv.Name)
	}
	return Violation{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Invariant:  inv.Name,
		StateID:    stateID,
		Message:    msg,
		Severity:   inv.Severity,
		ActionName: actionName,
		Path:       path,
		DetectedAt: at,
	}
}

// NewCheckErrorViolation captures an invariant whose Check returned an
// error. Severity is escalated one level and the error text embedded.
func NewCheckErrorViolation(inv Invariant, checkErr error, stateID, actionName string, path []graph.Transition, at time.Time) Violation {
	v := NewViolation(inv, stateID, actionName, path, at)
	v.Severity = inv.Severity.Escalate()
	v.Message = fmt.Sprintf("invariant %s check failed: %v", inv.Name, checkErr)
	v.CheckErrored = true
	return v
}
