package report

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/roach88/wander/internal/agent"
)

// JUnit XML shapes, matching what CI systems expect from test runners.
type junitTestSuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnit writes one testsuite named after the run. Each unique violation
// becomes a failed testcase; a clean run emits a single passing case so
// CI shows the suite as executed.
func JUnit(w io.Writer, suiteName string, res *agent.ExplorationResult) error {
	suite := junitTestSuite{
		Name: suiteName,
		Time: fmt.Sprintf("%.3f", res.Duration.Seconds()),
	}

	for _, v := range res.UniqueViolations {
		tc := junitTestCase{
			Name:      fmt.Sprintf("%s via %s", v.Invariant, v.ActionName),
			ClassName: suiteName,
		}
		body := v.Message
		if len(v.Path) > 0 {
			body += "\nreproduction: " + joinActions(v.Path)
		}
		detail := &junitFailure{
			Message: v.Message,
			Type:    v.Severity.String(),
			Body:    body,
		}
		if v.CheckErrored {
			tc.Error = detail
			suite.Errors++
		} else {
			tc.Failure = detail
			suite.Failures++
		}
		suite.Cases = append(suite.Cases, tc)
	}

	if res.RollbackFailed {
		suite.Cases = append(suite.Cases, junitTestCase{
			Name:      "exploration completed",
			ClassName: suiteName,
			Error: &junitFailure{
				Message: "rollback failure ended the run early",
				Type:    "rollback_failure",
				Body:    fmt.Sprintf("termination: %s", res.Termination),
			},
		})
		suite.Errors++
	} else if len(suite.Cases) == 0 {
		suite.Cases = append(suite.Cases, junitTestCase{
			Name:      "exploration completed",
			ClassName: suiteName,
		})
	}

	suite.Tests = len(suite.Cases)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(suite); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
