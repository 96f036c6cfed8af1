package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/hyper"
	"github.com/roach88/wander/internal/invariant"
)

// TerminationReason records why an exploration run stopped.
type TerminationReason string

const (
	// TerminatedMaxSteps means the step budget ran out with frontier left.
	TerminatedMaxSteps TerminationReason = "max_steps"

	// TerminatedCoverageTarget means the action-coverage target was met.
	TerminatedCoverageTarget TerminationReason = "coverage_target"

	// TerminatedFrontierExhausted means no explorable candidate remained.
	TerminatedFrontierExhausted TerminationReason = "frontier_exhausted"

	// TerminatedRollbackFailure means an adapter rollback failed; the run
	// stopped to avoid manufacturing violations from unknown-consistency
	// state.
	TerminatedRollbackFailure TerminationReason = "rollback_failure"

	// TerminatedCancelled means the caller's context was cancelled.
	TerminatedCancelled TerminationReason = "cancelled"
)

// ExplorationResult is the sole hand-off from the engine to reporters and
// the CLI. Partial results are always populated, even on early termination.
type ExplorationResult struct {
	Graph      *graph.Graph      `json:"-"`
	Hypergraph *hyper.Hypergraph `json:"-"`

	// Violations holds every captured violation in discovery order.
	Violations []invariant.Violation `json:"violations"`

	// UniqueViolations groups by (invariant, action), keeps the shortest
	// reproduction path per group, and sorts severity-descending.
	UniqueViolations []invariant.Violation `json:"unique_violations"`

	StatesVisited    int     `json:"states_visited"`
	TransitionsTaken int     `json:"transitions_taken"`
	CoveragePercent  float64 `json:"coverage_percent"`

	Duration time.Duration `json:"duration_ms"`

	// Success is true when no violation was found and the run did not end
	// in a rollback failure.
	Success bool `json:"success"`

	Termination         TerminationReason `json:"termination"`
	TruncatedByMaxSteps bool              `json:"truncated_by_max_steps,omitempty"`
	RollbackFailed      bool              `json:"rollback_failed,omitempty"`
}

// Summary renders a short human-readable digest of the run.
func (r *ExplorationResult) Summary() string {
	var b strings.Builder
	status := "PASS"
	if !r.Success {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s: %d states, %d transitions, %.1f%% action coverage in %s\n",
		status, r.StatesVisited, r.TransitionsTaken, r.CoveragePercent, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "termination: %s", r.Termination)
	if r.TruncatedByMaxSteps {
		b.WriteString(" (truncated)")
	}
	b.WriteByte('\n')
	if len(r.UniqueViolations) == 0 {
		b.WriteString("no invariant violations\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d violation(s), %d unique:\n", len(r.Violations), len(r.UniqueViolations))
	for _, v := range r.UniqueViolations {
		fmt.Fprintf(&b, "  [%s] %s via %s (%d-step reproduction)\n",
			v.Severity, v.Invariant, v.ActionName, len(v.Path))
	}
	return b.String()
}
