package timeline

import (
	"log/slog"

	"github.com/raphi011/timeline/internal/model"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FailureReporter is notified of every normalization that failed with one of
// the errors of the model.Error taxonomy, e.g. to forward it to error tracking.
type FailureReporter interface {
	Report(err *model.Error)
}

// ReporterFunc allows to use an ordinary function as a FailureReporter.
type ReporterFunc func(err *model.Error)

func (f ReporterFunc) Report(err *model.Error) {
	f(err)
}

type logReporter struct {
	log *slog.Logger
}

func (r logReporter) Report(err *model.Error) {
	keys := maps.Keys(err.Tags)
	slices.Sort(keys)

	attrs := make([]any, 0, 2+len(keys)*2)
	attrs = append(attrs, "kind", err.Kind)

	for _, k := range keys {
		attrs = append(attrs, k, err.Tags[k])
	}

	r.log.Warn(err.Message, attrs...)
}

// missingPluginError is prepended to the environment errors of recordings
// that were captured without the cypress plugin.
var missingPluginError = model.EnvironmentError{
	Code:    1,
	Name:    "MissingPlugin",
	Message: "The test runner plugin was not loaded while recording, the timeline of these tests is not available",
}
