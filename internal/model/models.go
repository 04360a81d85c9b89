// The `model` package holds the types shared by every stage of the normalization pipeline.
// It only depends on the standard library so that the stages can import it without creating
// cyclic dependencies. Types required by library users such as `GroupedTestCases` are
// reexported by the timeline package.
package model

import (
	"encoding/json"
)

// ExecutionPoint identifies a position in a recorded execution trace. Points are
// opaque: they are never constructed here, only compared with a point comparator.
type ExecutionPoint string

type TimeStampedPoint struct {
	Point ExecutionPoint `json:"point"`
	// Time is the wall clock time in milliseconds. It is informational only,
	// ordering is always derived from Point.
	Time float64 `json:"time"`
}

type TimeStampedPointRange struct {
	Begin TimeStampedPoint `json:"begin"`
	End   TimeStampedPoint `json:"end"`
}

// Section is one of the fixed test lifecycle phases.
type Section string

const (
	SectionBeforeAll  Section = "beforeAll"
	SectionBeforeEach Section = "beforeEach"
	SectionMain       Section = "main"
	SectionAfterEach  Section = "afterEach"
	SectionAfterAll   Section = "afterAll"
)

// Sections lists all sections in declaration order.
var Sections = []Section{SectionBeforeAll, SectionBeforeEach, SectionMain, SectionAfterEach, SectionAfterAll}

type Result string

const (
	ResultFailed   Result = "failed"
	ResultPassed   Result = "passed"
	ResultSkipped  Result = "skipped"
	ResultTimedOut Result = "timedOut"
	ResultUnknown  Result = "unknown"
)

// IsComplete returns true if the test ran to completion, whatever the outcome.
func (r Result) IsComplete() bool {
	switch r {
	case ResultFailed, ResultPassed, ResultTimedOut:
		return true
	}

	return false
}

type Category string

const (
	CategoryAssertion Category = "assertion"
	CategoryCommand   Category = "command"
	CategoryOther     Category = "other"
)

type Command struct {
	Name      string   `json:"name"`
	Arguments []string `json:"arguments"`
}

type TestError struct {
	Message string `json:"message"`
	Line    *int   `json:"line,omitempty"`
	Column  *int   `json:"column,omitempty"`
}

type StackFrame struct {
	ColumnNumber int    `json:"columnNumber"`
	FileName     string `json:"fileName"`
	FunctionName string `json:"functionName,omitempty"`
	LineNumber   int    `json:"lineNumber"`
}

type TestSource struct {
	Scope []string `json:"scope"`
	Title string   `json:"title"`
}

// TestRecording is a single attempt of a single test in its canonical (v3) form.
type TestRecording struct {
	// Attempt counts the retries of a test, starting at 1.
	Attempt int        `json:"attempt"`
	Error   *TestError `json:"error"`
	// Events holds the ordered events of each section. All sections are always present.
	Events SectionEvents `json:"events"`
	ID     int           `json:"id"`
	Result Result        `json:"result"`
	Source TestSource    `json:"source"`
	// TimeStampedPointRange spans all annotations of the test. It is nil for
	// tests that have no timing information (skipped tests or runners without annotations).
	TimeStampedPointRange *TimeStampedPointRange `json:"timeStampedPointRange"`
}

// SectionEvents maps every section to its events.
type SectionEvents map[Section]Events

// NewSectionEvents returns a SectionEvents value with an empty event list for every section.
func NewSectionEvents() SectionEvents {
	s := make(SectionEvents, len(Sections))

	for _, section := range Sections {
		s[section] = Events{}
	}

	return s
}

type TestRunner struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// EnvironmentError is a problem with the environment a test suite was recorded in,
// e.g. a missing test runner plugin. It is displayed inline by the UI.
type EnvironmentError struct {
	Code    int     `json:"code"`
	Detail  *string `json:"detail"`
	Message string  `json:"message"`
	Name    string  `json:"name"`
}

type Environment struct {
	Errors        []EnvironmentError `json:"errors"`
	PluginVersion string             `json:"pluginVersion"`
	TestRunner    TestRunner         `json:"testRunner"`
}

type GroupSource struct {
	FilePath string  `json:"filePath"`
	Title    *string `json:"title"`
}

// GroupedTestCases is the canonical (schema version 3) representation of all
// tests recorded in a single recording.
type GroupedTestCases struct {
	Environment    Environment     `json:"environment"`
	Result         Result          `json:"result"`
	ResultCounts   map[Result]int  `json:"resultCounts"`
	RunID          *string         `json:"runId"`
	SchemaVersion  string          `json:"schemaVersion"`
	Source         GroupSource     `json:"source"`
	TestRecordings []TestRecording `json:"testRecordings"`
	// TestSources is passed through untouched, it is null for runners that don't track it.
	TestSources json.RawMessage `json:"testSources"`
}

// SchemaVersion is the version every normalized value is advanced to.
const SchemaVersion = "3.0.0"
