package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFixturesReadsRecording(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "rec-1", source.AnnotationsFile),
		`[{"point": "1", "time": 10, "message": {"event": "step:start", "id": "a", "testId": 1, "attempt": 1}}]`)
	writeFile(t, filepath.Join(dir, "rec-1", source.NetworkRequestsFile),
		`[{"id": "r2", "events": {"openEvent": {"requestCause": "fetch", "requestMethod": "GET", "requestUrl": "/a"}}, "timeStampedPoint": {"point": "2", "time": 0}},
		  {"id": "r1", "events": {}, "timeStampedPoint": {"point": "3", "time": 0}}]`)

	f := source.NewFixtures(dir, slog.Default())

	rec, err := f.Recording("rec-1")
	require.NoError(t, err)

	annotations, err := rec.Annotations(context.Background())
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, model.AnnotationStepStart, annotations[0].Message.Event)
	assert.Equal(t, 1, *annotations[0].Message.TestID)

	requests, err := rec.NetworkRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, requests.IDs, "ids should be in point order")
	assert.Equal(t, "fetch", requests.Records["r2"].Events.OpenEvent.RequestCause)
}

func TestFixturesMissingFilesAreEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "rec"), 0o755))

	rec, err := source.NewFixtures(dir, slog.Default()).Recording("rec")
	require.NoError(t, err)

	annotations, err := rec.Annotations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, annotations)

	requests, err := rec.NetworkRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, requests.IDs)
}

func TestFixturesUnknownRecording(t *testing.T) {
	t.Parallel()

	f := source.NewFixtures(t.TempDir(), slog.Default())

	_, err := f.Recording("missing")
	assert.True(t, errors.Is(err, source.ErrRecordingNotFound))

	_, err = f.Recording("../escape")
	assert.True(t, errors.Is(err, source.ErrRecordingNotFound))
}

func TestElasticSearchesRecordingDocuments(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		queries []string
	)

	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		queries = append(queries, r.URL.Path+" "+string(body))
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasPrefix(r.URL.Path, "/annotations/_search"):
			_, _ = io.WriteString(w, `{"hits": {"hits": [
				{"_source": {"recordingId": "rec", "point": "1", "time": 1, "message": {"event": "test:start", "testId": 1, "attempt": 1}}},
				{"_source": {"recordingId": "rec", "point": "2", "time": 2, "message": {"event": "event:navigation", "url": "http://localhost", "testId": 1, "attempt": 1}}}
			]}}`)
		case strings.HasPrefix(r.URL.Path, "/network-requests/_search"):
			_, _ = io.WriteString(w, `{"hits": {"hits": [
				{"_source": {"recordingId": "rec", "id": "r1", "events": {"openEvent": {"requestCause": "xhr", "requestMethod": "POST", "requestUrl": "/api"}, "responseEvent": {"responseStatus": 201}}, "timeStampedPoint": {"point": "5", "time": 3}}}
			]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer es.Close()

	e, err := source.NewElastic(source.ElasticConfig{Addresses: []string{es.URL}}, slog.Default())
	require.NoError(t, err)

	rec := e.Recording("rec")

	annotations, err := rec.Annotations(context.Background())
	require.NoError(t, err)
	require.Len(t, annotations, 2)
	assert.Equal(t, "http://localhost", *annotations[1].Message.URL)

	requests, err := rec.NetworkRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, requests.IDs)
	assert.Equal(t, 201, requests.Records["r1"].Events.ResponseEvent.ResponseStatus)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, queries, 2)

	var query struct {
		Query struct {
			Term map[string]string `json:"term"`
		} `json:"query"`
	}
	body := queries[0][strings.Index(queries[0], " ")+1:]
	require.NoError(t, json.Unmarshal([]byte(body), &query))
	assert.Equal(t, "rec", query.Query.Term["recordingId"])
}

func TestElasticReportsSearchErrors(t *testing.T) {
	t.Parallel()

	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer es.Close()

	e, err := source.NewElastic(source.ElasticConfig{Addresses: []string{es.URL}}, slog.Default())
	require.NoError(t, err)

	_, err = e.Recording("rec").Annotations(context.Background())
	assert.Error(t, err)
}

// pagedElastic serves the documents of an index in pages, continuing after the
// `_doc` sort value of the last hit.
func pagedElastic(t *testing.T, total int, docs map[string][]string) *httptest.Server {
	t.Helper()

	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var query struct {
			SearchAfter []int `json:"search_after"`
		}
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		size, err := strconv.Atoi(r.URL.Query().Get("size"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		index := strings.TrimPrefix(strings.Split(r.URL.Path, "/_search")[0], "/")

		from := 0
		if len(query.SearchAfter) == 1 {
			from = query.SearchAfter[0] + 1
		}

		hits := []string{}
		for i := from; i < len(docs[index]) && len(hits) < size; i++ {
			hits = append(hits, fmt.Sprintf(`{"_source": %s, "sort": [%d]}`, docs[index][i], i))
		}

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		_, _ = fmt.Fprintf(w, `{"hits": {"total": {"value": %d, "relation": "eq"}, "hits": [%s]}}`, total, strings.Join(hits, ","))
	}))
	t.Cleanup(es.Close)

	return es
}

func TestElasticPagesThroughAllDocuments(t *testing.T) {
	t.Parallel()

	annotations := []string{}
	for i := 0; i < 5; i++ {
		annotations = append(annotations, fmt.Sprintf(`{"point": "%d", "time": %d, "message": {"event": "step:start", "id": "s%d", "testId": 1, "attempt": 1}}`, i, i, i))
	}

	es := pagedElastic(t, len(annotations), map[string][]string{"annotations": annotations})

	e, err := source.NewElastic(source.ElasticConfig{Addresses: []string{es.URL}, PageSize: 2}, slog.Default())
	require.NoError(t, err)

	got, err := e.Recording("rec").Annotations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 5)

	for i, a := range got {
		assert.Equal(t, model.ExecutionPoint(strconv.Itoa(i)), a.Point)
	}
}

func TestElasticFailsOnMissingDocuments(t *testing.T) {
	t.Parallel()

	es := pagedElastic(t, 25000, map[string][]string{"annotations": {
		`{"point": "1", "time": 1, "message": {"event": "test:start", "testId": 1, "attempt": 1}}`,
	}})

	e, err := source.NewElastic(source.ElasticConfig{Addresses: []string{es.URL}}, slog.Default())
	require.NoError(t, err)

	_, err = e.Recording("rec").Annotations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 1 of 25000 documents")
}

func TestElasticOrdersNetworkRequestsByPoint(t *testing.T) {
	t.Parallel()

	record := func(id, point string) string {
		return fmt.Sprintf(`{"id": %q, "events": {"openEvent": {"requestCause": "fetch", "requestMethod": "GET", "requestUrl": "/"}}, "timeStampedPoint": {"point": %q, "time": 0}}`, id, point)
	}

	es := pagedElastic(t, 3, map[string][]string{"network-requests": {
		record("late", "100"),
		record("early", "9"),
		record("middle", "20"),
	}})

	e, err := source.NewElastic(source.ElasticConfig{Addresses: []string{es.URL}, PageSize: 2}, slog.Default())
	require.NoError(t, err)

	requests, err := e.Recording("rec").NetworkRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "middle", "late"}, requests.IDs)
}
