package point_test

import (
	"testing"

	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/point"
	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b model.ExecutionPoint
		want int
	}{
		{name: "equal", a: "42", b: "42", want: 0},
		{name: "smaller", a: "9", b: "10", want: -1},
		{name: "greater", a: "10", b: "9", want: 1},
		{name: "128 bit", a: "340282366920938463463374607431768211455", b: "340282366920938463463374607431768211454", want: 1},
		{name: "beyond 128 bit", a: "340282366920938463463374607431768211456", b: "340282366920938463463374607431768211455", want: 1},
		{name: "beyond 128 bit smaller", a: "1", b: "3402823669209384634633746074317682114560", want: -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, point.Compare(tt.a, tt.b))
		})
	}
}

func TestCompareNeverUsesTime(t *testing.T) {
	t.Parallel()

	c := point.Comparator(point.Compare)

	early := model.TimeStampedPoint{Point: "1", Time: 500}
	late := model.TimeStampedPoint{Point: "2", Time: 100}

	assert.Equal(t, early, c.Min(early, late))
	assert.Equal(t, late, c.Max(early, late))
}

func TestCompareEventsOrdersEventsWithoutPointLast(t *testing.T) {
	t.Parallel()

	c := point.Comparator(point.Compare)

	withPoint := model.NavigationEvent{TimeStampedPoint: model.TimeStampedPoint{Point: "5"}}
	withoutPoint := model.UserActionEvent{}

	assert.Equal(t, -1, c.CompareEvents(withPoint, withoutPoint))
	assert.Equal(t, 1, c.CompareEvents(withoutPoint, withPoint))
	assert.Equal(t, 0, c.CompareEvents(withoutPoint, withoutPoint))
}
