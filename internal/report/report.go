// Package report renders exploration results for humans (console,
// Markdown), machines (JSON), and CI systems (JUnit XML).
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/wander/internal/agent"
	"github.com/roach88/wander/internal/graph"
	"github.com/roach88/wander/internal/hyper"
	"github.com/roach88/wander/internal/invariant"
)

// Console writes a plain-text report suitable for a terminal.
func Console(w io.Writer, res *agent.ExplorationResult) error {
	if _, err := io.WriteString(w, res.Summary()); err != nil {
		return err
	}

	if res.Hypergraph != nil && res.Hypergraph.Len() > 0 {
		cov := hyper.FromHypergraph(res.Hypergraph)
		if len(cov.Values) > 0 {
			fmt.Fprintf(w, "dimensions: %d observed combination(s), %d unseen\n",
				cov.ObservedCombinations, cov.UnseenCombinations)
		}
	}

	for _, v := range res.UniqueViolations {
		fmt.Fprintf(w, "\n%s\n", violationHeading(v))
		fmt.Fprintf(w, "  %s\n", v.Message)
		writePathText(w, v.Path, "  ")
	}
	return nil
}

func violationHeading(v invariant.Violation) string {
	h := fmt.Sprintf("[%s] %s (action: %s)", v.Severity, v.Invariant, v.ActionName)
	if v.CheckErrored {
		h += " [check error]"
	}
	return h
}

func writePathText(w io.Writer, path []graph.Transition, indent string) {
	if len(path) == 0 {
		fmt.Fprintf(w, "%sviolated in the initial state\n", indent)
		return
	}
	fmt.Fprintf(w, "%sreproduction (%d step(s)):\n", indent, len(path))
	for i, t := range path {
		fmt.Fprintf(w, "%s  %d. %s\n", indent, i+1, t.ActionName)
	}
}

func round(d time.Duration) time.Duration { return d.Round(time.Millisecond) }

func statusWord(success bool) string {
	if success {
		return "PASS"
	}
	return "FAIL"
}

func joinActions(path []graph.Transition) string {
	names := make([]string, len(path))
	for i, t := range path {
		names[i] = t.ActionName
	}
	return strings.Join(names, " -> ")
}
