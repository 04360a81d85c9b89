package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Normalizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_normalizations_total",
		Help: "The number of grouped test cases normalized since the service was started",
	}, []string{"runner", "result"})

	MissingPlugin = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_missing_plugin_total",
		Help: "The number of recordings that were captured without the test runner plugin",
	}, []string{"runner"})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_events_total",
		Help: "The number of test events emitted by normalizations",
	}, []string{"type"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_verifications_total",
		Help: "The number of fixtures verified since the service was started",
	}, []string{"result"})

	VerificationFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_verification_failures",
		Help: "The number of fixtures that failed the last verification run",
	})
)
