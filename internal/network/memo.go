package network

import (
	"context"
	"sync"

	"github.com/raphi011/timeline/internal/model"
	"golang.org/x/sync/singleflight"
)

type Source interface {
	NetworkRequests(ctx context.Context) (model.NetworkRequests, error)
}

// Memo fetches the network request stream of a source at most once. Concurrent
// callers share a single in-flight fetch, failed fetches are not cached.
type Memo struct {
	source Source
	group  singleflight.Group

	mu       sync.Mutex
	fetched  bool
	requests model.NetworkRequests
}

func NewMemo(source Source) *Memo {
	return &Memo{source: source}
}

func (m *Memo) NetworkRequests(ctx context.Context) (model.NetworkRequests, error) {
	m.mu.Lock()
	if m.fetched {
		defer m.mu.Unlock()
		return m.requests, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("network-requests", func() (any, error) {
		m.mu.Lock()
		if m.fetched {
			defer m.mu.Unlock()
			return m.requests, nil
		}
		m.mu.Unlock()

		requests, err := m.source.NetworkRequests(ctx)
		if err != nil {
			return model.NetworkRequests{}, err
		}

		m.mu.Lock()
		m.requests = requests
		m.fetched = true
		m.mu.Unlock()

		return requests, nil
	})
	if err != nil {
		return model.NetworkRequests{}, err
	}

	return v.(model.NetworkRequests), nil
}
