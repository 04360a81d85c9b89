package model_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raphi011/timeline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsAreTagged(t *testing.T) {
	t.Parallel()

	point := model.TimeStampedPoint{Point: "42", Time: 1.5}

	events := model.Events{
		model.UserActionEvent{
			Data: model.UserActionData{
				Category: model.CategoryCommand,
				Command:  model.Command{Name: "click", Arguments: []string{"#submit"}},
				ID:       "s1",
			},
			TimeStampedPointRange: &model.TimeStampedPointRange{Begin: point, End: point},
		},
		model.NavigationEvent{Data: model.NavigationData{URL: "http://localhost"}, TimeStampedPoint: point},
		model.NetworkRequestEvent{
			Data: model.NetworkRequestData{
				Request:  model.NetworkRequestInfo{ID: "r1", Method: "GET", URL: "/api"},
				Response: &model.NetworkResponseInfo{Status: 200},
			},
			TimeStampedPoint: point,
		},
	}

	data, err := json.Marshal(events)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.Equal(t, "user-action", raw[0]["type"])
	assert.Equal(t, "navigation", raw[1]["type"])
	assert.Equal(t, "network-request", raw[2]["type"])

	var decoded model.Events
	require.NoError(t, json.Unmarshal(data, &decoded))

	if diff := cmp.Diff(events, decoded); diff != "" {
		t.Errorf("decoded events mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsRejectUnknownType(t *testing.T) {
	t.Parallel()

	var events model.Events

	err := json.Unmarshal([]byte(`[{"type": "console-message"}]`), &events)
	assert.Error(t, err)
}

func TestNewSectionEventsHasAllSections(t *testing.T) {
	t.Parallel()

	s := model.NewSectionEvents()

	for _, section := range model.Sections {
		events, ok := s[section]
		assert.True(t, ok, "section %s is missing", section)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	}
}

func TestResultIsComplete(t *testing.T) {
	t.Parallel()

	assert.True(t, model.ResultPassed.IsComplete())
	assert.True(t, model.ResultFailed.IsComplete())
	assert.True(t, model.ResultTimedOut.IsComplete())
	assert.False(t, model.ResultSkipped.IsComplete())
	assert.False(t, model.ResultUnknown.IsComplete())
}

func TestErrorMatchesKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("reconstructing test: %w", model.NewError(
		model.KindMissingField,
		"Step is missing required field id",
		map[string]any{"field": "id", "command": "click"},
	))

	assert.True(t, errors.Is(err, model.ErrMissingField))
	assert.False(t, errors.Is(err, model.ErrMissingAnnotations))

	var nErr *model.Error
	require.True(t, errors.As(err, &nErr))
	assert.Equal(t, "id", nErr.Tags["field"])

	assert.Equal(t,
		"reconstructing test: missing-field: Step is missing required field id (command=click field=id)",
		err.Error(),
	)
}
