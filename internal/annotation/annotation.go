// Package annotation assigns the annotations of a recording to the tests they
// were emitted for.
package annotation

import (
	"github.com/raphi011/timeline/internal/model"
)

// LegacyHookTestID is the test id older plugin versions emit for annotations
// of before/after hooks.
const LegacyHookTestID = -1

// IsHook returns true if the annotation was emitted by a hook rather than by a test.
func IsHook(a model.Annotation) bool {
	return a.Message.TestID == nil || *a.Message.TestID == LegacyHookTestID
}

// Correlate partitions the annotations of a recording by test. The returned slice has
// one entry per test, in the order of tests, and keeps the relative order of annotations.
// Hook annotations are skipped.
func Correlate(annotations []model.Annotation, tests []model.PartialTestRecording) ([][]model.Annotation, error) {
	byTest := make([][]model.Annotation, len(tests))

	for _, a := range annotations {
		if IsHook(a) {
			continue
		}

		testID := *a.Message.TestID

		if a.Message.Attempt == nil {
			return nil, model.NewError(
				model.KindUnsupportedSchema,
				"Annotation is missing the test attempt, the test runner plugin needs to be updated",
				map[string]any{"testId": testID, "event": a.Message.Event},
			)
		}

		attempt := *a.Message.Attempt

		index := -1
		for i, t := range tests {
			if t.ID == testID && t.Attempt == attempt {
				index = i
				break
			}
		}

		if index < 0 {
			return nil, model.NewError(
				model.KindCorrelation,
				"Unable to find test for annotation",
				map[string]any{"testId": testID, "attempt": attempt, "event": a.Message.Event},
			)
		}

		byTest[index] = append(byTest[index], a)
	}

	return byTest, nil
}

// MissingPlugin detects recordings that were captured without the test runner
// plugin: there are no annotations at all although at least one test did not
// report a complete result.
func MissingPlugin(annotations []model.Annotation, tests []model.PartialTestRecording) bool {
	if len(annotations) > 0 {
		return false
	}

	for _, t := range tests {
		if !t.Result.IsComplete() {
			return true
		}
	}

	return false
}
