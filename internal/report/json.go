package report

import (
	"encoding/json"
	"io"

	"github.com/roach88/wander/internal/agent"
	"github.com/roach88/wander/internal/hyper"
	"github.com/roach88/wander/internal/invariant"
)

// jsonReport is the machine-readable shape of a run. The state graph is
// summarized rather than embedded: full observation dumps can be large
// and the reproduction paths already carry what a consumer needs.
type jsonReport struct {
	Status           string                `json:"status"`
	Termination      string                `json:"termination"`
	StatesVisited    int                   `json:"states_visited"`
	TransitionsTaken int                   `json:"transitions_taken"`
	CoveragePercent  float64               `json:"coverage_percent"`
	DurationMS       int64                 `json:"duration_ms"`
	Truncated        bool                  `json:"truncated_by_max_steps,omitempty"`
	RollbackFailed   bool                  `json:"rollback_failed,omitempty"`
	Dimensions       *jsonDimensions       `json:"dimensions,omitempty"`
	Violations       []jsonViolation       `json:"violations"`
}

type jsonDimensions struct {
	Values               map[string][]string `json:"values"`
	ObservedCombinations int                 `json:"observed_combinations"`
	UnseenCombinations   int                 `json:"unseen_combinations"`
}

type jsonViolation struct {
	Invariant    string   `json:"invariant"`
	Severity     string   `json:"severity"`
	Action       string   `json:"action"`
	Message      string   `json:"message"`
	StateID      string   `json:"state_id"`
	Path         []string `json:"reproduction_path"`
	CheckErrored bool     `json:"check_errored,omitempty"`
}

// JSON writes the machine-readable report.
func JSON(w io.Writer, res *agent.ExplorationResult) error {
	out := jsonReport{
		Status:           statusWord(res.Success),
		Termination:      string(res.Termination),
		StatesVisited:    res.StatesVisited,
		TransitionsTaken: res.TransitionsTaken,
		CoveragePercent:  res.CoveragePercent,
		DurationMS:       res.Duration.Milliseconds(),
		Truncated:        res.TruncatedByMaxSteps,
		RollbackFailed:   res.RollbackFailed,
		Violations:       make([]jsonViolation, 0, len(res.UniqueViolations)),
	}

	if res.Hypergraph != nil && res.Hypergraph.Len() > 0 {
		cov := hyper.FromHypergraph(res.Hypergraph)
		out.Dimensions = &jsonDimensions{
			Values:               cov.Values,
			ObservedCombinations: cov.ObservedCombinations,
			UnseenCombinations:   cov.UnseenCombinations,
		}
	}

	for _, v := range res.UniqueViolations {
		out.Violations = append(out.Violations, toJSONViolation(v))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONViolation(v invariant.Violation) jsonViolation {
	path := make([]string, len(v.Path))
	for i, t := range v.Path {
		path[i] = t.ActionName
	}
	return jsonViolation{
		Invariant:    v.Invariant,
		Severity:     v.Severity.String(),
		Action:       v.ActionName,
		Message:      v.Message,
		StateID:      v.StateID,
		Path:         path,
		CheckErrored: v.CheckErrored,
	}
}
