package invariant

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wander/internal/graph"
)

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "CRITICAL", SeverityCritical.String())
	assert.Equal(t, "HIGH", SeverityHigh.String())
	assert.Equal(t, "MEDIUM", SeverityMedium.String())
	assert.Equal(t, "LOW", SeverityLow.String())
	assert.Equal(t, "INFO", SeverityInfo.String())
}

func TestSeverity_Escalate(t *testing.T) {
	assert.Equal(t, SeverityLow, SeverityInfo.Escalate())
	assert.Equal(t, SeverityCritical, SeverityHigh.Escalate())
	assert.Equal(t, SeverityCritical, SeverityCritical.Escalate(), "CRITICAL is the ceiling")
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("HIGH")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, s)

	_, err = ParseSeverity("SHRUG")
	require.Error(t, err)
}

func TestNewViolation_DefaultsMessage(t *testing.T) {
	inv := Invariant{Name: "no_negative_balance", Severity: SeverityHigh}
	v := NewViolation(inv, "state-1", "withdraw", nil, time.Unix(5, 0))

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "no_negative_balance", v.Invariant)
	assert.Equal(t, "withdraw", v.ActionName)
	assert.Contains(t, v.Message, "no_negative_balance")
	assert.False(t, v.CheckErrored)
}

func TestNewCheckErrorViolation_EscalatesAndEmbeds(t *testing.T) {
	inv := Invariant{Name: "broken", Severity: SeverityMedium, Message: "unused"}
	v := NewCheckErrorViolation(inv, errors.New("nil map deref"), "state-1", "act", nil, time.Unix(5, 0))

	assert.Equal(t, SeverityHigh, v.Severity)
	assert.Contains(t, v.Message, "nil map deref")
	assert.True(t, v.CheckErrored)
}

func pathOfLen(n int) []graph.Transition {
	path := make([]graph.Transition, n)
	for i := range path {
		path[i] = graph.NewTransition("s", "a", "s2", nil)
	}
	return path
}

func TestDedup_KeepsShortestPerGroup(t *testing.T) {
	long := NewViolation(Invariant{Name: "inv", Severity: SeverityHigh}, "s3", "act", pathOfLen(3), time.Unix(1, 0))
	short := NewViolation(Invariant{Name: "inv", Severity: SeverityHigh}, "s1", "act", pathOfLen(1), time.Unix(2, 0))

	unique := Dedup([]Violation{long, short})
	require.Len(t, unique, 1)
	assert.Equal(t, short.ID, unique[0].ID)
}

func TestDedup_TieKeepsEarliest(t *testing.T) {
	first := NewViolation(Invariant{Name: "inv", Severity: SeverityHigh}, "s1", "act", pathOfLen(2), time.Unix(1, 0))
	second := NewViolation(Invariant{Name: "inv", Severity: SeverityHigh}, "s2", "act", pathOfLen(2), time.Unix(2, 0))

	unique := Dedup([]Violation{first, second})
	require.Len(t, unique, 1)
	assert.Equal(t, first.ID, unique[0].ID)
}

func TestDedup_SeparateGroupsSurvive(t *testing.T) {
	a := NewViolation(Invariant{Name: "inv", Severity: SeverityHigh}, "s1", "push", pathOfLen(1), time.Unix(1, 0))
	b := NewViolation(Invariant{Name: "inv", Severity: SeverityHigh}, "s1", "pop", pathOfLen(1), time.Unix(2, 0))
	c := NewViolation(Invariant{Name: "other", Severity: SeverityLow}, "s1", "push", pathOfLen(1), time.Unix(3, 0))

	unique := Dedup([]Violation{a, b, c})
	assert.Len(t, unique, 3)
}

func TestDedup_SortsSeverityThenPathLength(t *testing.T) {
	lowShort := NewViolation(Invariant{Name: "a_low", Severity: SeverityLow}, "s1", "x", pathOfLen(1), time.Unix(1, 0))
	critLong := NewViolation(Invariant{Name: "b_crit", Severity: SeverityCritical}, "s2", "y", pathOfLen(5), time.Unix(2, 0))
	critShort := NewViolation(Invariant{Name: "c_crit", Severity: SeverityCritical}, "s3", "z", pathOfLen(2), time.Unix(3, 0))

	unique := Dedup([]Violation{lowShort, critLong, critShort})
	require.Len(t, unique, 3)
	assert.Equal(t, "c_crit", unique[0].Invariant)
	assert.Equal(t, "b_crit", unique[1].Invariant)
	assert.Equal(t, "a_low", unique[2].Invariant)
}

func TestDedup_NoStrictLengthSupersetPairs(t *testing.T) {
	// Same (invariant, action) discovered at lengths 1, 2, 3: only the
	// shortest survives, so no surviving pair is a strict superset.
	var vs []Violation
	for n := 3; n >= 1; n-- {
		vs = append(vs, NewViolation(Invariant{Name: "inv", Severity: SeverityHigh}, "s", "act", pathOfLen(n), time.Unix(int64(n), 0)))
	}
	unique := Dedup(vs)
	require.Len(t, unique, 1)
	assert.Len(t, unique[0].Path, 1)
}
