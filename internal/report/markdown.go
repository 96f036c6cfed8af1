package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/roach88/wander/internal/agent"
	"github.com/roach88/wander/internal/hyper"
)

// Markdown writes a report suitable for pasting into an issue or PR.
func Markdown(w io.Writer, res *agent.ExplorationResult) error {
	fmt.Fprintf(w, "# Exploration report: %s\n\n", statusWord(res.Success))

	fmt.Fprintf(w, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(w, "| States visited | %d |\n", res.StatesVisited)
	fmt.Fprintf(w, "| Transitions taken | %d |\n", res.TransitionsTaken)
	fmt.Fprintf(w, "| Action coverage | %.1f%% |\n", res.CoveragePercent)
	fmt.Fprintf(w, "| Duration | %s |\n", round(res.Duration))
	fmt.Fprintf(w, "| Termination | %s |\n", res.Termination)
	if res.TruncatedByMaxSteps {
		fmt.Fprintf(w, "| Truncated | yes |\n")
	}
	if res.RollbackFailed {
		fmt.Fprintf(w, "| Rollback failure | yes |\n")
	}

	if res.Hypergraph != nil && res.Hypergraph.Len() > 0 {
		cov := hyper.FromHypergraph(res.Hypergraph)
		if len(cov.Values) > 0 {
			fmt.Fprintf(w, "\n## Dimension coverage\n\n")
			fmt.Fprintf(w, "%d combination(s) observed, %d unseen.\n\n", cov.ObservedCombinations, cov.UnseenCombinations)
			fmt.Fprintf(w, "| Dimension | Observed values |\n|---|---|\n")
			dims := make([]string, 0, len(cov.Values))
			for d := range cov.Values {
				dims = append(dims, d)
			}
			sort.Strings(dims)
			for _, d := range dims {
				fmt.Fprintf(w, "| %s | ", d)
				for i, v := range cov.Values[d] {
					if i > 0 {
						io.WriteString(w, ", ")
					}
					fmt.Fprintf(w, "`%s`", v)
				}
				io.WriteString(w, " |\n")
			}
		}
	}

	if len(res.UniqueViolations) == 0 {
		fmt.Fprintf(w, "\nNo invariant violations.\n")
		return nil
	}

	fmt.Fprintf(w, "\n## Violations (%d unique of %d found)\n", len(res.UniqueViolations), len(res.Violations))
	for _, v := range res.UniqueViolations {
		fmt.Fprintf(w, "\n### %s\n\n", violationHeading(v))
		fmt.Fprintf(w, "%s\n\n", v.Message)
		if len(v.Path) == 0 {
			fmt.Fprintf(w, "Violated in the initial state.\n")
			continue
		}
		fmt.Fprintf(w, "Reproduction: `%s`\n", joinActions(v.Path))
	}
	return nil
}
