package verify_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphi011/timeline/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, root, name, input, expected string) {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, verify.InputFile), []byte(input), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, verify.ExpectedFile), []byte(expected), 0o644))
}

// echo returns the input unchanged.
func echo(ctx context.Context, data []byte, c verify.Client) ([]byte, error) {
	if _, err := c.Annotations(ctx); err != nil {
		return nil, err
	}

	return data, nil
}

func TestRunReportsMismatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	writeFixture(t, root, "a-same", `{"a": 1, "b": [1, 2]}`, `{"b": [1, 2], "a": 1}`)
	writeFixture(t, root, "b-different", `{"a": 1}`, `{"a": 2}`)

	summary, err := verify.New(echo, slog.Default()).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0], "b-different")
	assert.Contains(t, summary.Failures[0], "output mismatch")
}

func TestRunReportsNormalizationErrors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixture(t, root, "broken", `{}`, `{}`)

	failing := func(ctx context.Context, data []byte, c verify.Client) ([]byte, error) {
		return nil, errors.New("boom")
	}

	summary, err := verify.New(failing, slog.Default()).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Failures[0], "boom")
}

func TestRunMissingExpectedOutput(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "incomplete")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, verify.InputFile), []byte(`{}`), 0o644))

	summary, err := verify.New(echo, slog.Default()).Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunUnknownRoot(t *testing.T) {
	t.Parallel()

	_, err := verify.New(echo, slog.Default()).Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	out := verify.RenderSummary(verify.Summary{Total: 3, Failed: 1, Failures: []string{"x: output mismatch"}})

	assert.Equal(t, "fixtures: total=3 failed=1\nfailures:\n- x: output mismatch", out)
}
