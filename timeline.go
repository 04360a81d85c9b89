package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"github.com/raphi011/timeline/internal/annotation"
	"github.com/raphi011/timeline/internal/merge"
	"github.com/raphi011/timeline/internal/metric"
	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/network"
	"github.com/raphi011/timeline/internal/point"
	"github.com/raphi011/timeline/internal/schema"
	"github.com/raphi011/timeline/internal/step"
	"github.com/raphi011/timeline/internal/version"
	"golang.org/x/sync/errgroup"
)

const (
	// RunnerCypress records annotations for every step through its plugin.
	RunnerCypress = "cypress"
	// RunnerPlaywright does not record annotations, steps are kept as declared.
	RunnerPlaywright = "playwright"
)

// Reexport to allow library users to reference these types

type GroupedTestCases = model.GroupedTestCases
type TestRecording = model.TestRecording
type Annotation = model.Annotation
type NetworkRequests = model.NetworkRequests
type Error = model.Error

// Client provides the recording scoped data a normalization pass needs.
type Client interface {
	Annotations(ctx context.Context) ([]model.Annotation, error)
	NetworkRequests(ctx context.Context) (model.NetworkRequests, error)
}

// Normalizer converts grouped test cases of any supported schema version into
// their canonical form. It is safe for concurrent use.
type Normalizer struct {
	log         *slog.Logger
	concurrency int
	compare     point.Comparator
	reporter    FailureReporter

	validator *schema.Validator
	steps     *step.Reconstructor
	network   *network.Extractor
	merger    *merge.Merger
}

type option func(n *Normalizer)

// New configures a new Normalizer.
func New(opts ...option) (*Normalizer, error) {
	n := &Normalizer{
		log:         slog.Default(),
		concurrency: runtime.GOMAXPROCS(0),
		compare:     point.Compare,
	}

	for _, o := range opts {
		o(n)
	}

	if n.reporter == nil {
		n.reporter = logReporter{log: n.log}
	}

	validator, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("loading schemas: %w", err)
	}

	n.validator = validator
	n.steps = step.New(n.compare)
	n.network = network.NewExtractor(n.compare)
	n.merger = merge.New(n.compare)

	return n, nil
}

// NormalizeJSON normalizes raw grouped test cases and returns the canonical JSON.
// Values that are already canonical are returned as is.
func (n *Normalizer) NormalizeJSON(ctx context.Context, data []byte, c Client) ([]byte, error) {
	grouped, err := n.normalize(ctx, data, c)
	if err != nil {
		return nil, err
	}

	if grouped == nil {
		return data, nil
	}

	out, err := json.Marshal(grouped)
	if err != nil {
		return nil, fmt.Errorf("encoding grouped test cases: %w", err)
	}

	return out, nil
}

// Normalize normalizes raw grouped test cases.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, c Client) (model.GroupedTestCases, error) {
	grouped, err := n.normalize(ctx, data, c)
	if err != nil {
		return model.GroupedTestCases{}, err
	}

	if grouped != nil {
		return *grouped, nil
	}

	var v3 model.GroupedTestCases
	if err := json.Unmarshal(data, &v3); err != nil {
		return model.GroupedTestCases{}, fmt.Errorf("decoding grouped test cases: %w", err)
	}

	return v3, nil
}

// normalize returns nil if data is already canonical.
func (n *Normalizer) normalize(ctx context.Context, data []byte, c Client) (*model.GroupedTestCases, error) {
	log := n.log.With("pass-id", uuid.NewString())

	raw, v, err := classify(data)
	if err != nil {
		return nil, n.fail(log, "", err)
	}

	runner := runnerName(raw)
	log = log.With("schema-version", v.String(), "runner", runner)

	if v == version.V3 {
		log.Debug("grouped test cases are already normalized")
		metric.Normalizations.WithLabelValues(runner, "unchanged").Inc()

		return nil, nil
	}

	grouped, err := n.convert(ctx, log, v, data, c)
	if err != nil {
		return nil, n.fail(log, runner, err)
	}

	metric.Normalizations.WithLabelValues(runner, "converted").Inc()
	countEvents(grouped.TestRecordings)

	log.Info("normalized grouped test cases", "tests", len(grouped.TestRecordings))

	return &grouped, nil
}

func (n *Normalizer) convert(ctx context.Context, log *slog.Logger, v version.Version, data []byte, c Client) (model.GroupedTestCases, error) {
	if v != version.V2 {
		return model.GroupedTestCases{}, model.NewError(
			model.KindUnsupportedSchema,
			"Unsupported grouped test cases version",
			map[string]any{"version": v.String()},
		)
	}

	group, err := n.decodeV2(data)
	if err != nil {
		return model.GroupedTestCases{}, err
	}

	env := group.Environment
	testSources := group.TestSources

	var recordings []model.TestRecording

	switch runner := group.Environment.TestRunner.Name; runner {
	case RunnerCypress:
		recordings, env, err = n.annotated(ctx, log, group, c)
		// cypress recordings don't track test sources
		testSources = nil
	case RunnerPlaywright:
		recordings, err = plain(group.TestRecordings)
	default:
		err = model.NewError(model.KindUnsupportedRunner, "Unsupported test runner", map[string]any{"runner": runner})
	}

	if err != nil {
		return model.GroupedTestCases{}, err
	}

	if env.Errors == nil {
		env.Errors = []model.EnvironmentError{}
	}

	return model.GroupedTestCases{
		Environment:    env,
		Result:         group.Result,
		ResultCounts:   group.ResultCounts,
		RunID:          group.RunID,
		SchemaVersion:  model.SchemaVersion,
		Source:         group.Source,
		TestRecordings: recordings,
		TestSources:    testSources,
	}, nil
}

func (n *Normalizer) decodeV2(data []byte) (model.GroupedTestCasesV2, error) {
	if err := n.validator.ValidateGroupedV2(data); err != nil {
		return model.GroupedTestCasesV2{}, model.NewError(
			model.KindUnsupportedSchema,
			"Grouped test cases do not match schema version 2",
			map[string]any{"error": err.Error()},
		)
	}

	var recordings struct {
		TestRecordings []map[string]json.RawMessage `json:"testRecordings"`
	}
	if err := json.Unmarshal(data, &recordings); err != nil {
		return model.GroupedTestCasesV2{}, fmt.Errorf("decoding test recordings: %w", err)
	}

	for i, r := range recordings.TestRecordings {
		if v := version.Recording(r); v != version.V2 {
			return model.GroupedTestCasesV2{}, model.NewError(
				model.KindUnsupportedSchema,
				"Unsupported test recording version",
				map[string]any{"index": i, "version": v.String()},
			)
		}
	}

	var group model.GroupedTestCasesV2
	if err := json.Unmarshal(data, &group); err != nil {
		return model.GroupedTestCasesV2{}, model.NewError(
			model.KindUnsupportedSchema,
			"Unable to decode grouped test cases",
			map[string]any{"error": err.Error()},
		)
	}

	return group, nil
}

// annotated reconstructs the tests of a recording that carries annotations. The
// returned environment has the errors detected during reconstruction prepended.
func (n *Normalizer) annotated(ctx context.Context, log *slog.Logger, group model.GroupedTestCasesV2, c Client) ([]model.TestRecording, model.Environment, error) {
	env := group.Environment
	tests := group.TestRecordings

	annotations, err := c.Annotations(ctx)
	if err != nil {
		return nil, env, fmt.Errorf("fetching annotations: %w", err)
	}

	log.Debug("fetched annotations", "annotations", len(annotations))

	if annotation.MissingPlugin(annotations, tests) {
		log.Warn("recording has no annotations, the test runner plugin was probably not loaded")
		metric.MissingPlugin.WithLabelValues(env.TestRunner.Name).Inc()

		env.Errors = append([]model.EnvironmentError{missingPluginError}, env.Errors...)

		recordings := make([]model.TestRecording, len(tests))

		for i, t := range tests {
			t.Result = model.ResultUnknown

			rec, err := n.steps.Annotated(t, nil)
			if err != nil {
				return nil, env, err
			}

			recordings[i] = testRecording(t, rec.Sections, rec.Range)
		}

		return recordings, env, nil
	}

	byTest, err := annotation.Correlate(annotations, tests)
	if err != nil {
		return nil, env, err
	}

	memo := network.NewMemo(c)
	recordings := make([]model.TestRecording, len(tests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)

	for i := range tests {
		i := i

		g.Go(func() error {
			r, err := n.reconstruct(ctx, tests[i], byTest[i], memo)
			if err != nil {
				return err
			}

			recordings[i] = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, env, err
	}

	return recordings, env, nil
}

// reconstruct rebuilds a single test and merges the navigations and network
// requests that happened while it ran into its sections.
func (n *Normalizer) reconstruct(ctx context.Context, test model.PartialTestRecording, annotations []model.Annotation, requests *network.Memo) (model.TestRecording, error) {
	rec, err := n.steps.Annotated(test, annotations)
	if err != nil {
		return model.TestRecording{}, err
	}

	var networkEvents []model.TestEvent

	if rec.Range != nil {
		stream, err := requests.NetworkRequests(ctx)
		if err != nil {
			return model.TestRecording{}, fmt.Errorf("fetching network requests: %w", err)
		}

		networkEvents, err = n.network.Extract(stream, rec.Range.Begin, rec.Range.End)
		if err != nil {
			return model.TestRecording{}, err
		}
	}

	n.merger.Merge(rec.Sections, rec.Navigations, networkEvents)

	return testRecording(test, rec.Sections, rec.Range), nil
}

func plain(tests []model.PartialTestRecording) ([]model.TestRecording, error) {
	recordings := make([]model.TestRecording, len(tests))

	for i, t := range tests {
		sections, err := step.Plain(t)
		if err != nil {
			return nil, err
		}

		recordings[i] = testRecording(t, sections, nil)
	}

	return recordings, nil
}

func testRecording(t model.PartialTestRecording, sections model.SectionEvents, r *model.TimeStampedPointRange) model.TestRecording {
	return model.TestRecording{
		Attempt:               t.Attempt,
		Error:                 t.Error,
		Events:                sections,
		ID:                    t.ID,
		Result:                t.Result,
		Source:                t.Source,
		TimeStampedPointRange: r,
	}
}

// fail reports taxonomy errors to the failure reporter and passes err through.
func (n *Normalizer) fail(log *slog.Logger, runner string, err error) error {
	metric.Normalizations.WithLabelValues(runner, "failed").Inc()

	var nErr *model.Error
	if errors.As(err, &nErr) {
		n.reporter.Report(nErr)
	}

	log.Error("normalization failed", "error", err)

	return err
}

func classify(data []byte) (map[string]json.RawMessage, version.Version, error) {
	var raw map[string]json.RawMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, version.Unknown, model.NewError(
			model.KindUnsupportedSchema,
			"Grouped test cases must be a JSON object",
			map[string]any{"error": err.Error()},
		)
	}

	if raw == nil {
		return nil, version.Unknown, model.NewError(model.KindUnsupportedSchema, "Grouped test cases must be a JSON object", nil)
	}

	return raw, version.Grouped(raw), nil
}

// runnerName returns the declared test runner, it is only used to label logs and metrics.
func runnerName(raw map[string]json.RawMessage) string {
	var env struct {
		TestRunner struct {
			Name string `json:"name"`
		} `json:"testRunner"`
	}

	if err := json.Unmarshal(raw["environment"], &env); err != nil {
		return ""
	}

	return env.TestRunner.Name
}

func countEvents(recordings []model.TestRecording) {
	for _, r := range recordings {
		for _, events := range r.Events {
			for _, e := range events {
				metric.EventsTotal.WithLabelValues(string(e.Type())).Inc()
			}
		}
	}
}
