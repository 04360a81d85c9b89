// Package point orders execution points. Every ordering decision in the pipeline
// goes through a Comparator, points are never ordered by their wall clock time.
package point

import (
	"strings"

	"github.com/raphi011/timeline/internal/model"
	"lukechampine.com/uint128"
)

// Comparator returns -1 if a is before b, 1 if a is after b and 0 if both are equal.
type Comparator func(a, b model.ExecutionPoint) int

// Compare orders points encoded as unsigned decimal integers, which is how recorded
// traces serialize them. Points that don't fit into 128 bits are compared by
// their decimal digits.
func Compare(a, b model.ExecutionPoint) int {
	ua, errA := uint128.FromString(string(a))
	ub, errB := uint128.FromString(string(b))

	if errA == nil && errB == nil {
		return ua.Cmp(ub)
	}

	return compareDecimal(string(a), string(b))
}

func compareDecimal(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}

	return strings.Compare(a, b)
}

// Min returns the earlier of both points.
func (c Comparator) Min(a, b model.TimeStampedPoint) model.TimeStampedPoint {
	if c(b.Point, a.Point) < 0 {
		return b
	}

	return a
}

// Max returns the later of both points.
func (c Comparator) Max(a, b model.TimeStampedPoint) model.TimeStampedPoint {
	if c(b.Point, a.Point) > 0 {
		return b
	}

	return a
}

// CompareEvents orders events by their sort point. Events without a point
// are ordered after all events with one and are equal among themselves.
func (c Comparator) CompareEvents(a, b model.TestEvent) int {
	pa, okA := a.SortPoint()
	pb, okB := b.SortPoint()

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}

	return c(pa, pb)
}
