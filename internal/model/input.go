package model

import "encoding/json"

// GroupedTestCasesV2 is the schema version 2 shape of GroupedTestCases. Its test
// recordings only carry the declared steps, timing information has to be
// reconstructed from annotations.
type GroupedTestCasesV2 struct {
	Environment    Environment            `json:"environment"`
	Result         Result                 `json:"result"`
	ResultCounts   map[Result]int         `json:"resultCounts"`
	RunID          *string                `json:"runId"`
	SchemaVersion  string                 `json:"schemaVersion"`
	Source         GroupSource            `json:"source"`
	TestRecordings []PartialTestRecording `json:"testRecordings"`
	TestSources    json.RawMessage        `json:"testSources"`
}

// PartialTestRecording is a test recording as it is declared by the test runner,
// without any execution points.
type PartialTestRecording struct {
	Attempt int                       `json:"attempt"`
	Error   *TestError                `json:"error"`
	Events  map[Section][]PartialStep `json:"events"`
	ID      int                       `json:"id"`
	Result  Result                    `json:"result"`
	Source  TestSource                `json:"source"`
}

// PartialStep is a step declared by the test runner. Fields that are required
// by the canonical form are pointers so that their absence can be detected.
type PartialStep struct {
	Category  *Category    `json:"category"`
	Command   *Command     `json:"command"`
	Error     *TestError   `json:"error"`
	ID        *string      `json:"id"`
	ParentID  *string      `json:"parentId"`
	CallStack []StackFrame `json:"callStack"`
}

type AnnotationEvent string

const (
	AnnotationNavigation  AnnotationEvent = "event:navigation"
	AnnotationTestStart   AnnotationEvent = "test:start"
	AnnotationTestEnd     AnnotationEvent = "test:end"
	AnnotationStepStart   AnnotationEvent = "step:start"
	AnnotationStepEnqueue AnnotationEvent = "step:enqueue"
	AnnotationStepEnd     AnnotationEvent = "step:end"
)

// IsStep returns true for annotations that belong to a single step.
func (e AnnotationEvent) IsStep() bool {
	return e == AnnotationStepStart || e == AnnotationStepEnqueue || e == AnnotationStepEnd
}

type AnnotationMessage struct {
	Event AnnotationEvent `json:"event"`
	// ID is the id of the step for step annotations.
	ID          string  `json:"id,omitempty"`
	TestID      *int    `json:"testId,omitempty"`
	Attempt     *int    `json:"attempt,omitempty"`
	URL         *string `json:"url,omitempty"`
	LogVariable *string `json:"logVariable,omitempty"`
}

// Annotation is a side-channel marker emitted by the test runner plugin.
type Annotation struct {
	Point   ExecutionPoint    `json:"point"`
	Time    float64           `json:"time"`
	Message AnnotationMessage `json:"message"`
}

func (a Annotation) TimeStampedPoint() TimeStampedPoint {
	return TimeStampedPoint{Point: a.Point, Time: a.Time}
}

type RequestOpenEvent struct {
	RequestCause  string `json:"requestCause"`
	RequestMethod string `json:"requestMethod"`
	RequestURL    string `json:"requestUrl"`
}

type RequestResponseEvent struct {
	ResponseStatus int `json:"responseStatus"`
}

type NetworkRecordEvents struct {
	OpenEvent     *RequestOpenEvent     `json:"openEvent"`
	ResponseEvent *RequestResponseEvent `json:"responseEvent"`
}

// NetworkRecord is a single network request of a recording.
type NetworkRecord struct {
	ID               string              `json:"id"`
	Events           NetworkRecordEvents `json:"events"`
	TimeStampedPoint TimeStampedPoint    `json:"timeStampedPoint"`
}

// NetworkRequests is the network request stream of a recording.
type NetworkRequests struct {
	// IDs lists the request ids in discovery order, which is also execution point order.
	IDs     []string                 `json:"ids"`
	Records map[string]NetworkRecord `json:"records"`
}
