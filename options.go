package timeline

import (
	"log/slog"

	"github.com/raphi011/timeline/internal/point"
)

func WithLogger(log *slog.Logger) option {
	return func(n *Normalizer) {
		n.log = log
	}
}

// WithConcurrency limits the number of tests that are reconstructed in parallel.
// Values below 1 are ignored.
func WithConcurrency(concurrency int) option {
	return func(n *Normalizer) {
		if concurrency > 0 {
			n.concurrency = concurrency
		}
	}
}

// WithComparator replaces the execution point comparator, by default points are
// compared as unsigned decimal integers.
func WithComparator(compare point.Comparator) option {
	return func(n *Normalizer) {
		n.compare = compare
	}
}

// WithFailureReporter sets the reporter that is notified of every failed normalization.
func WithFailureReporter(r FailureReporter) option {
	return func(n *Normalizer) {
		n.reporter = r
	}
}
