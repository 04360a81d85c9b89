// Package merge assigns instantaneous events to the test section they happened in
// and keeps every section ordered by execution point.
package merge

import (
	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/point"
	"golang.org/x/exp/slices"
)

// assignOrder is the order sections are scanned in when assigning an event,
// the reverse of their declaration order.
var assignOrder = []model.Section{model.SectionAfterEach, model.SectionMain, model.SectionBeforeEach}

type Merger struct {
	compare point.Comparator
}

func New(compare point.Comparator) *Merger {
	return &Merger{compare: compare}
}

// Merge sorts the events of every section by point and inserts the given events
// into the sections they belong to. sections is modified in place.
func (m *Merger) Merge(sections model.SectionEvents, events ...[]model.TestEvent) {
	for section, es := range sections {
		slices.SortStableFunc(es, m.compare.CompareEvents)
		sections[section] = es
	}

	for _, es := range events {
		for _, e := range es {
			m.Insert(sections, e)
		}
	}
}

// Insert adds e to the section it belongs to, after all events with the same
// or an earlier point.
func (m *Merger) Insert(sections model.SectionEvents, e model.TestEvent) {
	section := m.sectionFor(sections, e)
	es := sections[section]

	i, _ := slices.BinarySearchFunc(es, e, func(existing, target model.TestEvent) int {
		if c := m.compare.CompareEvents(existing, target); c != 0 {
			return c
		}

		// equal events are treated as smaller so e is inserted after them
		return -1
	})

	sections[section] = slices.Insert(es, i, e)
}

// sectionFor returns the last declared section whose first event is not after e.
// Events that precede all sections, or arrive while all sections are empty, go to main.
func (m *Merger) sectionFor(sections model.SectionEvents, e model.TestEvent) model.Section {
	p, ok := e.SortPoint()
	if !ok {
		return model.SectionMain
	}

	for _, section := range assignOrder {
		es := sections[section]
		if len(es) == 0 {
			continue
		}

		first, ok := es[0].SortPoint()
		if ok && m.compare(first, p) <= 0 {
			return section
		}
	}

	return model.SectionMain
}
