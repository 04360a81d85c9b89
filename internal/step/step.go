// Package step rebuilds the user action events of a test from the steps declared
// by the test runner and, if available, the annotations emitted while they ran.
package step

import (
	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/point"
)

// trivialChainCommands are chained commands that add nothing when debugging a test.
var trivialChainCommands = map[string]bool{
	"as":   true,
	"then": true,
}

const assertCommand = "assert"

// stepSections are the sections steps are reconstructed for. Steps of
// beforeAll and afterAll hooks are discarded.
var stepSections = []model.Section{model.SectionBeforeEach, model.SectionMain, model.SectionAfterEach}

// Reconstruction is the result of reconstructing a single test.
type Reconstruction struct {
	// Sections holds the user action events of each section in declaration order.
	Sections model.SectionEvents
	// Navigations are the navigation events of the test. They still have to
	// be merged into Sections.
	Navigations []model.TestEvent
	// Range spans all annotations of the test, it is nil if the test has no timing information.
	Range *model.TimeStampedPointRange
}

type Reconstructor struct {
	compare point.Comparator
}

func New(compare point.Comparator) *Reconstructor {
	return &Reconstructor{compare: compare}
}

// Annotated reconstructs a test from the annotations correlated to it. Skipped tests
// and tests with an unknown result have no annotations and yield empty sections.
func (r *Reconstructor) Annotated(test model.PartialTestRecording, annotations []model.Annotation) (Reconstruction, error) {
	rec := Reconstruction{Sections: model.NewSectionEvents()}

	if test.Result == model.ResultSkipped || test.Result == model.ResultUnknown {
		return rec, nil
	}

	var begin, end *model.TimeStampedPoint

	byStep := map[string][]model.Annotation{}

	for _, a := range annotations {
		tsp := a.TimeStampedPoint()

		// test:start and test:end are not reliable, the test spans all of its annotations instead.
		if begin == nil {
			b, e := tsp, tsp
			begin, end = &b, &e
		} else {
			b, e := r.compare.Min(*begin, tsp), r.compare.Max(*end, tsp)
			begin, end = &b, &e
		}

		switch {
		case a.Message.Event == model.AnnotationNavigation:
			if a.Message.URL == nil {
				return Reconstruction{}, model.NewError(
					model.KindMissingField,
					"Navigation annotation is missing url",
					map[string]any{"testId": test.ID, "point": a.Point},
				)
			}

			rec.Navigations = append(rec.Navigations, model.NavigationEvent{
				Data:             model.NavigationData{URL: *a.Message.URL},
				TimeStampedPoint: tsp,
			})
		case a.Message.Event.IsStep():
			byStep[a.Message.ID] = append(byStep[a.Message.ID], a)
		}
	}

	if begin == nil || end == nil {
		return Reconstruction{}, model.NewError(
			model.KindInvariantViolation,
			"Unable to determine the begin and end point of the test",
			map[string]any{"testId": test.ID, "attempt": test.Attempt},
		)
	}

	rec.Range = &model.TimeStampedPointRange{Begin: *begin, End: *end}

	for _, section := range stepSections {
		for _, s := range test.Events[section] {
			if err := checkRequired(s); err != nil {
				return Reconstruction{}, err
			}

			if isTrivialChain(s) {
				continue
			}

			e, err := annotatedEvent(s, byStep[*s.ID])
			if err != nil {
				return Reconstruction{}, err
			}

			rec.Sections[section] = append(rec.Sections[section], e)
		}
	}

	return rec, nil
}

func annotatedEvent(s model.PartialStep, annotations []model.Annotation) (model.UserActionEvent, error) {
	tags := stepTags(s)

	if len(annotations) == 0 {
		return model.UserActionEvent{}, model.NewError(model.KindMissingAnnotations, "Step has no annotations", tags)
	}

	var start, enqueue, end *model.Annotation

	for i := range annotations {
		a := &annotations[i]

		switch a.Message.Event {
		case model.AnnotationStepStart:
			if start == nil {
				start = a
			}
		case model.AnnotationStepEnqueue:
			if enqueue == nil {
				enqueue = a
			}
		case model.AnnotationStepEnd:
			if end == nil {
				end = a
			}
		}
	}

	if start == nil {
		return model.UserActionEvent{}, model.NewError(model.KindMissingAnnotations, "Step is missing a step:start annotation", tags)
	}

	begin := start.TimeStampedPoint()
	r := model.TimeStampedPointRange{Begin: begin, End: begin}

	var result *model.UserActionResult

	if end != nil {
		r.End = end.TimeStampedPoint()

		if end.Message.LogVariable != nil {
			result = &model.UserActionResult{
				TimeStampedPoint: end.TimeStampedPoint(),
				Variable:         *end.Message.LogVariable,
			}
		}
	}

	var viewSource *model.TimeStampedPoint

	if s.Command.Name == assertCommand {
		viewSource = &begin
	} else if enqueue != nil {
		p := enqueue.TimeStampedPoint()
		viewSource = &p
	}

	if viewSource == nil {
		return model.UserActionEvent{}, model.NewError(model.KindMissingAnnotations, "Step is missing a step:enqueue annotation", tags)
	}

	return model.UserActionEvent{
		Data: model.UserActionData{
			Category:                   *s.Category,
			Command:                    *s.Command,
			Error:                      s.Error,
			ID:                         *s.ID,
			ParentID:                   s.ParentID,
			Result:                     result,
			ViewSourceTimeStampedPoint: viewSource,
		},
		TimeStampedPointRange: &r,
	}, nil
}

// Plain reconstructs a test of a runner that emits no annotations. The events
// have no timing information and are kept in declaration order.
func Plain(test model.PartialTestRecording) (model.SectionEvents, error) {
	sections := model.NewSectionEvents()

	for _, section := range stepSections {
		for _, s := range test.Events[section] {
			if err := checkRequired(s); err != nil {
				return nil, err
			}

			if isTrivialChain(s) {
				continue
			}

			var callStack []model.StackFrame
			if s.CallStack != nil {
				callStack = make([]model.StackFrame, 0, len(s.CallStack))
				for _, f := range s.CallStack {
					callStack = append(callStack, model.StackFrame{
						ColumnNumber: f.ColumnNumber,
						FileName:     f.FileName,
						FunctionName: f.FunctionName,
						LineNumber:   f.LineNumber,
					})
				}
			}

			sections[section] = append(sections[section], model.UserActionEvent{
				Data: model.UserActionData{
					Category:  *s.Category,
					Command:   *s.Command,
					Error:     s.Error,
					ID:        *s.ID,
					ParentID:  s.ParentID,
					CallStack: callStack,
				},
			})
		}
	}

	return sections, nil
}

func checkRequired(s model.PartialStep) error {
	var missing string

	switch {
	case s.Category == nil:
		missing = "category"
	case s.Command == nil:
		missing = "command"
	case s.ID == nil:
		missing = "id"
	default:
		return nil
	}

	tags := stepTags(s)
	tags["field"] = missing

	return model.NewError(model.KindMissingField, "Step is missing required field "+missing, tags)
}

func isTrivialChain(s model.PartialStep) bool {
	return s.ParentID != nil && trivialChainCommands[s.Command.Name]
}

func stepTags(s model.PartialStep) map[string]any {
	tags := map[string]any{}

	if s.ID != nil {
		tags["id"] = *s.ID
	}
	if s.Command != nil {
		tags["command"] = s.Command.Name
	}
	if s.Category != nil {
		tags["category"] = string(*s.Category)
	}

	return tags
}
