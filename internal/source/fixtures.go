// Package source provides the recording data sources the normalizer reads
// annotations and network requests from.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/point"
	"golang.org/x/exp/slices"
)

const (
	AnnotationsFile     = "annotations.json"
	NetworkRequestsFile = "network.json"
)

// ErrRecordingNotFound is returned for recordings a source knows nothing about.
var ErrRecordingNotFound = model.NotFoundError{}

// Fixtures reads recordings from a directory that contains one sub-directory per recording id.
type Fixtures struct {
	dir string
	log *slog.Logger
}

func NewFixtures(dir string, log *slog.Logger) *Fixtures {
	return &Fixtures{dir: dir, log: log}
}

// Recording returns the recording stored in <dir>/<recordingID>.
func (f *Fixtures) Recording(recordingID string) (*FixtureRecording, error) {
	if recordingID == "" || recordingID != filepath.Base(recordingID) {
		return nil, fmt.Errorf("invalid recording id %q: %w", recordingID, ErrRecordingNotFound)
	}

	return OpenFixtureDir(filepath.Join(f.dir, recordingID), f.log)
}

// OpenFixtureDir returns the recording stored in dir.
func OpenFixtureDir(dir string, log *slog.Logger) (*FixtureRecording, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("recording %s: %w", dir, ErrRecordingNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("opening recording %s: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("recording %s is not a directory: %w", dir, ErrRecordingNotFound)
	}

	return &FixtureRecording{dir: dir, log: log.With("recording-dir", dir)}, nil
}

// FixtureRecording is a single recording on disk. Missing files are treated
// as empty annotation lists or request streams.
type FixtureRecording struct {
	dir string
	log *slog.Logger
}

func (r *FixtureRecording) Annotations(ctx context.Context) ([]model.Annotation, error) {
	annotations := []model.Annotation{}

	if err := r.readJSON(AnnotationsFile, &annotations); err != nil {
		return nil, err
	}

	return annotations, nil
}

func (r *FixtureRecording) NetworkRequests(ctx context.Context) (model.NetworkRequests, error) {
	// stored as a list of records in discovery order
	records := []model.NetworkRecord{}

	if err := r.readJSON(NetworkRequestsFile, &records); err != nil {
		return model.NetworkRequests{}, err
	}

	return requestsFromRecords(records), nil
}

func (r *FixtureRecording) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		r.log.Debug("fixture file not found, assuming it is empty", "file", name)
		return nil
	} else if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}

	return nil
}

// requestsFromRecords indexes records by id, ids are ordered by point.
func requestsFromRecords(records []model.NetworkRecord) model.NetworkRequests {
	slices.SortStableFunc(records, func(a, b model.NetworkRecord) int {
		return point.Compare(a.TimeStampedPoint.Point, b.TimeStampedPoint.Point)
	})

	requests := model.NetworkRequests{
		IDs:     make([]string, 0, len(records)),
		Records: make(map[string]model.NetworkRecord, len(records)),
	}

	for _, r := range records {
		requests.IDs = append(requests.IDs, r.ID)
		requests.Records[r.ID] = r
	}

	return requests
}
