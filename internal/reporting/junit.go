// Package reporting converts evaluation outcomes into external formats:
// JUnit XML for CI systems and plain-language summaries for humans.
package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cocoabench/saiten/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one evaluation run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one graded task.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure represents a grading failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an unexpected error during grading.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts an EvaluationOutcome to JUnit XML format.
func ConvertToJUnit(outcome *models.EvaluationOutcome) *JUnitTestSuites {
	durationSec := float64(outcome.Digest.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      outcome.SuiteName,
		Tests:     outcome.Digest.TotalTasks,
		Failures:  outcome.Digest.Failed,
		Errors:    outcome.Digest.Errors,
		Time:      durationSec,
		Timestamp: outcome.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "suite", Value: outcome.SuiteName},
			{Name: "eval_id", Value: outcome.RunID},
			{Name: "score", Value: fmt.Sprintf("%.4f", outcome.Digest.AggregateScore)},
			{Name: "pass_rate", Value: fmt.Sprintf("%.4f", outcome.Digest.PassRate)},
		},
	}

	for _, to := range outcome.TaskOutcomes {
		tc := convertTaskOutcome(outcome.SuiteName, &to)
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      outcome.Digest.TotalTasks,
		Failures:   outcome.Digest.Failed,
		Errors:     outcome.Digest.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertTaskOutcome(suiteName string, to *models.TaskOutcome) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      to.DisplayName,
		Classname: suiteName,
		Time:      float64(to.DurationMs) / 1000.0,
	}

	switch to.Status {
	case models.StatusFailed:
		tc.Failure = buildFailure(to)
	case models.StatusError:
		tc.Error = buildError(to)
	}

	return tc
}

func buildFailure(to *models.TaskOutcome) *JUnitFailure {
	return &JUnitFailure{
		Message: fmt.Sprintf("%s: score=%.2f", to.DisplayName, to.Score),
		Type:    "GraderFailure",
		Body:    formatFailedGraders(to.Validations),
	}
}

func buildError(to *models.TaskOutcome) *JUnitError {
	msg := to.ErrorMsg
	if msg == "" {
		msg = "grading error"
	}

	return &JUnitError{
		Message: msg,
		Type:    "GradingError",
	}
}

func formatFailedGraders(validations map[string]models.GraderResults) string {
	if len(validations) == 0 {
		return ""
	}

	// Sort for deterministic output
	names := make([]string, 0, len(validations))
	for name := range validations {
		names = append(names, name)
	}
	sort.Strings(names)

	var result string
	for _, name := range names {
		g := validations[name]
		if !g.Passed {
			result += fmt.Sprintf("[FAIL] %s (%s) score=%.2f: %s\n", name, g.Type, g.Score, g.Feedback)
		}
	}
	return result
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.EvaluationOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
