// Package network turns the network request stream of a recording into
// network-request events of a single test.
package network

import (
	"sort"

	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/point"
)

// relevantCauses are the request causes shown on a test timeline, other
// requests such as document or script loads are noise.
var relevantCauses = map[string]bool{
	"fetch": true,
	"xhr":   true,
}

type Extractor struct {
	compare point.Comparator
}

func NewExtractor(compare point.Comparator) *Extractor {
	return &Extractor{compare: compare}
}

// Extract returns the fetch and xhr requests whose point lies in [begin, end).
func (x *Extractor) Extract(requests model.NetworkRequests, begin, end model.TimeStampedPoint) ([]model.TestEvent, error) {
	ids, err := x.window(requests, begin.Point, end.Point)
	if err != nil {
		return nil, err
	}

	events := []model.TestEvent{}

	for _, id := range ids {
		r := requests.Records[id]

		open := r.Events.OpenEvent
		if open == nil {
			return nil, model.NewError(
				model.KindMissingField,
				"Network request is missing its open event",
				map[string]any{"requestId": id},
			)
		}

		if !relevantCauses[open.RequestCause] {
			continue
		}

		var response *model.NetworkResponseInfo
		if r.Events.ResponseEvent != nil {
			response = &model.NetworkResponseInfo{Status: r.Events.ResponseEvent.ResponseStatus}
		}

		events = append(events, model.NetworkRequestEvent{
			Data: model.NetworkRequestData{
				Request: model.NetworkRequestInfo{
					ID:     id,
					Method: open.RequestMethod,
					URL:    open.RequestURL,
				},
				Response: response,
			},
			TimeStampedPoint: r.TimeStampedPoint,
		})
	}

	return events, nil
}

// window slices the ids whose point lies in [begin, end). Ids are in point order.
// Only ids inside the window must have a record, an id without a record takes the
// position of the next recorded id while searching.
func (x *Extractor) window(requests model.NetworkRequests, begin, end model.ExecutionPoint) ([]string, error) {
	ids := requests.IDs

	atOrAfter := func(target model.ExecutionPoint) int {
		return sort.Search(len(ids), func(i int) bool {
			for ; i < len(ids); i++ {
				if r, ok := requests.Records[ids[i]]; ok {
					return x.compare(r.TimeStampedPoint.Point, target) >= 0
				}
			}

			return true
		})
	}

	from, to := atOrAfter(begin), atOrAfter(end)
	if from >= to {
		return nil, nil
	}

	for _, id := range ids[from:to] {
		if _, ok := requests.Records[id]; !ok {
			return nil, model.NewError(
				model.KindMissingField,
				"Network request id has no record",
				map[string]any{"requestId": id},
			)
		}
	}

	return ids[from:to], nil
}
