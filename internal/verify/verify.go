// Package verify normalizes saved recordings and compares the results with the
// output that is expected for them.
//
// A fixture root holds one directory per recording:
//
//	<root>/<name>/input.json        raw grouped test cases
//	<root>/<name>/annotations.json  annotations of the recording (optional)
//	<root>/<name>/network.json      network requests of the recording (optional)
//	<root>/<name>/expected.json     normalized grouped test cases
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/raphi011/timeline/internal/metric"
	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/source"
)

const (
	InputFile    = "input.json"
	ExpectedFile = "expected.json"
)

type Client interface {
	Annotations(ctx context.Context) ([]model.Annotation, error)
	NetworkRequests(ctx context.Context) (model.NetworkRequests, error)
}

// NormalizeFunc normalizes raw grouped test cases with the data of a single recording.
type NormalizeFunc func(ctx context.Context, data []byte, c Client) ([]byte, error)

// Summary reports fixture verification totals.
type Summary struct {
	Total    int
	Failed   int
	Failures []string
}

type Verifier struct {
	normalize NormalizeFunc
	log       *slog.Logger
}

func New(normalize NormalizeFunc, log *slog.Logger) *Verifier {
	return &Verifier{normalize: normalize, log: log}
}

// Run verifies every fixture below root in lexical order. Failing fixtures are
// collected in the summary, only an unreadable root is returned as an error.
func (v *Verifier) Run(ctx context.Context, root string) (Summary, error) {
	summary := Summary{}

	items, err := os.ReadDir(root)
	if err != nil {
		return summary, fmt.Errorf("read fixtures %s: %w", root, err)
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsDir() {
			names = append(names, item.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Total++

		if err := v.verify(ctx, filepath.Join(root, name)); err != nil {
			v.log.Warn("fixture verification failed", "fixture", name, "error", err)
			metric.Verifications.WithLabelValues("failed").Inc()

			summary.Failed++
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", name, err))

			continue
		}

		metric.Verifications.WithLabelValues("passed").Inc()
	}

	metric.VerificationFailures.Set(float64(summary.Failed))

	v.log.Info("verified fixtures", "root", root, "total", summary.Total, "failed", summary.Failed)

	return summary, nil
}

func (v *Verifier) verify(ctx context.Context, dir string) error {
	input, err := os.ReadFile(filepath.Join(dir, InputFile))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	expected, err := os.ReadFile(filepath.Join(dir, ExpectedFile))
	if err != nil {
		return fmt.Errorf("read expected output: %w", err)
	}

	recording, err := source.OpenFixtureDir(dir, v.log)
	if err != nil {
		return err
	}

	actual, err := v.normalize(ctx, input, recording)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	return compare(expected, actual)
}

// compare compares two JSON documents structurally, key order and formatting are ignored.
func compare(expected, actual []byte) error {
	var e, a any

	if err := json.Unmarshal(expected, &e); err != nil {
		return fmt.Errorf("decode expected output: %w", err)
	}
	if err := json.Unmarshal(actual, &a); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}

	if diff := cmp.Diff(e, a); diff != "" {
		return fmt.Errorf("output mismatch (-expected +actual):\n%s", diff)
	}

	return nil
}

func RenderSummary(summary Summary) string {
	lines := []string{fmt.Sprintf("fixtures: total=%d failed=%d", summary.Total, summary.Failed)}
	if len(summary.Failures) > 0 {
		lines = append(lines, "failures:")
		for _, f := range summary.Failures {
			lines = append(lines, "- "+f)
		}
	}
	return strings.Join(lines, "\n")
}
