package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/raphi011/timeline/internal/model"
)

type ElasticConfig struct {
	Addresses       []string
	Username        string
	Password        string
	AnnotationIndex string
	NetworkIndex    string
	// PageSize limits the number of documents fetched per recording.
	PageSize int
}

// Elastic reads annotations and network requests that were indexed per recording
// (documents carry a `recordingId` field).
type Elastic struct {
	client *elasticsearch.Client
	config ElasticConfig
	log    *slog.Logger
}

func NewElastic(config ElasticConfig, log *slog.Logger) (*Elastic, error) {
	if config.AnnotationIndex == "" {
		config.AnnotationIndex = "annotations"
	}
	if config.NetworkIndex == "" {
		config.NetworkIndex = "network-requests"
	}
	if config.PageSize <= 0 {
		config.PageSize = 10000
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return &Elastic{client: client, config: config, log: log}, nil
}

func (e *Elastic) Recording(recordingID string) *ElasticRecording {
	return &ElasticRecording{e: e, recordingID: recordingID}
}

type ElasticRecording struct {
	e           *Elastic
	recordingID string
}

func (r *ElasticRecording) Annotations(ctx context.Context) ([]model.Annotation, error) {
	annotations := []model.Annotation{}

	err := r.e.search(ctx, r.e.config.AnnotationIndex, r.recordingID, func(source json.RawMessage) error {
		var a model.Annotation
		if err := json.Unmarshal(source, &a); err != nil {
			return err
		}

		annotations = append(annotations, a)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching annotations of recording %s: %w", r.recordingID, err)
	}

	return annotations, nil
}

func (r *ElasticRecording) NetworkRequests(ctx context.Context) (model.NetworkRequests, error) {
	records := []model.NetworkRecord{}

	err := r.e.search(ctx, r.e.config.NetworkIndex, r.recordingID, func(source json.RawMessage) error {
		var nr model.NetworkRecord
		if err := json.Unmarshal(source, &nr); err != nil {
			return err
		}

		records = append(records, nr)

		return nil
	})
	if err != nil {
		return model.NetworkRequests{}, fmt.Errorf("fetching network requests of recording %s: %w", r.recordingID, err)
	}

	return requestsFromRecords(records), nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value    int    `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []struct {
			Source json.RawMessage `json:"_source"`
			Sort   []any           `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// search streams the `_source` of all documents of a recording in index order to fn.
// Documents are fetched in pages of PageSize using search_after.
func (e *Elastic) search(ctx context.Context, index, recordingID string, fn func(json.RawMessage) error) error {
	var (
		searchAfter []any
		fetched     int
		total       int
	)

	for {
		r, err := e.searchPage(ctx, index, recordingID, searchAfter)
		if err != nil {
			return err
		}

		total = r.Hits.Total.Value

		for _, h := range r.Hits.Hits {
			if err := fn(h.Source); err != nil {
				return fmt.Errorf("decoding document %d: %w", fetched, err)
			}

			fetched++
		}

		if len(r.Hits.Hits) < e.config.PageSize {
			break
		}

		searchAfter = r.Hits.Hits[len(r.Hits.Hits)-1].Sort
		if len(searchAfter) == 0 {
			return fmt.Errorf("search in index %s returned no sort values to continue after document %d", index, fetched)
		}
	}

	e.log.Debug("fetched documents", "index", index, "recording-id", recordingID, "hits", fetched)

	if fetched < total {
		return fmt.Errorf("search in index %s returned %d of %d documents", index, fetched, total)
	}

	return nil
}

func (e *Elastic) searchPage(ctx context.Context, index, recordingID string, searchAfter []any) (searchResponse, error) {
	var buf bytes.Buffer

	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"recordingId": recordingID,
			},
		},
		"sort":             []string{"_doc"},
		"track_total_hits": true,
	}
	if searchAfter != nil {
		query["search_after"] = searchAfter
	}

	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return searchResponse{}, fmt.Errorf("encoding query: %w", err)
	}

	es := e.client

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
		es.Search.WithSize(e.config.PageSize),
	)
	if err != nil {
		return searchResponse{}, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return searchResponse{}, fmt.Errorf("search in index %s failed: %s", index, res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return searchResponse{}, fmt.Errorf("decoding search response: %w", err)
	}

	return r, nil
}
