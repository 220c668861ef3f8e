// Package metrics holds the Prometheus collectors of the router and its
// upstream transports. Collectors are registered with the default registry
// when the package is loaded.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts attempts sent to an upstream, by provider and HTTP status ("error" when no response)
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finrouter",
		Name:      "upstream_requests_total",
		Help:      "HTTP attempts sent to upstream providers.",
	}, []string{"provider", "status"})

	// UpstreamRetries counts retried attempts by provider
	UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finrouter",
		Name:      "upstream_retries_total",
		Help:      "Upstream attempts that were retried.",
	}, []string{"provider"})

	// UpstreamInFlight tracks connections checked out of a provider pool
	UpstreamInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "finrouter",
		Name:      "upstream_inflight",
		Help:      "Upstream requests currently holding a connection.",
	}, []string{"provider"})

	// Fetches counts router fetches by category, provider and outcome
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finrouter",
		Name:      "fetches_total",
		Help:      "Router fetches by outcome (ok or error kind).",
	}, []string{"category", "provider", "outcome"})

	// FetchDuration observes end-to-end fetch latency in seconds
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "finrouter",
		Name:      "fetch_duration_seconds",
		Help:      "End-to-end router fetch latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"category", "provider"})
)

// ObserveUpstream records one attempt against provider; status 0 means no response
func ObserveUpstream(provider string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(provider, label).Inc()
}

// ObserveFetch records a finished router fetch
func ObserveFetch(category, provider, outcome string, elapsed time.Duration) {
	Fetches.WithLabelValues(category, provider, outcome).Inc()
	FetchDuration.WithLabelValues(category, provider).Observe(elapsed.Seconds())
}
