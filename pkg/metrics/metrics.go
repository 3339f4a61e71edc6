package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchRequests counts matching runs by result (ok|no_attributes|error).
	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_match_requests_total",
			Help: "Total number of match suggestion requests",
		},
		[]string{"result"},
	)

	// IntroductionsCreated counts introduction rows created by origin (scored|manual).
	IntroductionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_introductions_created_total",
			Help: "Total number of introductions created",
		},
		[]string{"origin"},
	)

	// LifecycleTransitions counts lifecycle events and their outcome (ok|invalid).
	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_introduction_transitions_total",
			Help: "Total number of introduction lifecycle transitions attempted",
		},
		[]string{"event", "result"},
	)

	// Settlements counts payment reconciliations by outcome (created|duplicate|rejected).
	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_settlements_total",
			Help: "Total number of payment settlement deliveries processed",
		},
		[]string{"outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atrium_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
