package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wander/internal/agent"
	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/hyper"
	"github.com/roach88/wander/internal/invariant"
)

// fixtureResult builds a fully deterministic failed run: every field
// that feeds a renderer is pinned so golden comparisons are stable.
func fixtureResult() *agent.ExplorationResult {
	hg := hyper.NewHypergraph()
	hg.Add("state-1", hyper.Hyperedge{"auth_status": "anonymous", "users_class": "zero"})
	hg.Add("state-2", hyper.Hyperedge{"auth_status": "authenticated", "users_class": "one"})

	balance := invariant.Violation{
		ID:         "viol-1",
		Invariant:  "no_negative_balance",
		StateID:    "state-2",
		Message:    "account balance went negative",
		Severity:   invariant.SeverityHigh,
		ActionName: "refund",
		Path: []graph.Transition{
			{FromStateID: "state-1", ActionName: "create_user", ToStateID: "state-2"},
			{FromStateID: "state-2", ActionName: "refund", ToStateID: "state-3"},
		},
	}
	audit := invariant.Violation{
		ID:           "viol-2",
		Invariant:    "audit_log_intact",
		StateID:      "state-1",
		Message:      "audit check errored: log table missing",
		Severity:     invariant.SeverityMedium,
		ActionName:   "purge",
		CheckErrored: true,
	}

	return &agent.ExplorationResult{
		Hypergraph:       hg,
		Violations:       []invariant.Violation{balance, audit},
		UniqueViolations: []invariant.Violation{balance, audit},
		StatesVisited:    4,
		TransitionsTaken: 6,
		CoveragePercent:  75,
		Duration:         1512 * time.Millisecond,
		Success:          false,
		Termination:      agent.TerminatedFrontierExhausted,
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestConsole_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Console(&buf, fixtureResult()))
	newGoldie(t).Assert(t, "console_fail", buf.Bytes())
}

func TestJSON_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, fixtureResult()))
	newGoldie(t).Assert(t, "json_fail", buf.Bytes())
}

func TestMarkdown_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, fixtureResult()))
	newGoldie(t).Assert(t, "markdown_fail", buf.Bytes())
}

func TestConsole_CleanRun(t *testing.T) {
	res := &agent.ExplorationResult{
		StatesVisited:    3,
		TransitionsTaken: 5,
		CoveragePercent:  100,
		Duration:         80 * time.Millisecond,
		Success:          true,
		Termination:      agent.TerminatedFrontierExhausted,
	}

	var buf bytes.Buffer
	require.NoError(t, Console(&buf, res))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "PASS:"))
	assert.Contains(t, out, "no invariant violations")
}

func TestJUnit_ViolationsBecomeFailedCases(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JUnit(&buf, "checkout", fixtureResult()))

	out := buf.String()
	assert.Contains(t, out, `<testsuite name="checkout" tests="2" failures="1" errors="1" time="1.512">`)
	assert.Contains(t, out, `<testcase name="no_negative_balance via refund" classname="checkout">`)
	assert.Contains(t, out, `<failure message="account balance went negative" type="HIGH">`)
	// The errored check lands in <error>, not <failure>.
	assert.Contains(t, out, `<error message="audit check errored: log table missing" type="MEDIUM">`)
	assert.Contains(t, out, "reproduction: create_user")
}

func TestJUnit_CleanRunEmitsPassingCase(t *testing.T) {
	res := &agent.ExplorationResult{
		Success:     true,
		Duration:    time.Second,
		Termination: agent.TerminatedFrontierExhausted,
	}

	var buf bytes.Buffer
	require.NoError(t, JUnit(&buf, "checkout", res))

	out := buf.String()
	assert.Contains(t, out, `tests="1" failures="0" errors="0"`)
	assert.Contains(t, out, `<testcase name="exploration completed" classname="checkout">`)
}

func TestJUnit_RollbackFailureIsAnError(t *testing.T) {
	res := &agent.ExplorationResult{
		Duration:       time.Second,
		RollbackFailed: true,
		Termination:    agent.TerminatedRollbackFailure,
	}

	var buf bytes.Buffer
	require.NoError(t, JUnit(&buf, "checkout", res))

	out := buf.String()
	assert.Contains(t, out, `errors="1"`)
	assert.Contains(t, out, "rollback failure ended the run early")
}
