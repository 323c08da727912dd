// Package telemetry exposes Prometheus metrics and a small observability
// endpoint served while a crawl runs.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	brokersCrawledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brokercrawl_brokers_total",
			Help: "Total number of brokers processed, labeled by outcome.",
		},
		[]string{"status"},
	)

	requestRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brokercrawl_request_retries_total",
			Help: "Total number of request retries, labeled by cause.",
		},
		[]string{"reason"},
	)

	sessionRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brokercrawl_session_refreshes_total",
			Help: "Total number of session re-authentication handshakes.",
		},
	)

	recordsParsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brokercrawl_records_parsed_total",
			Help: "Total number of trade records parsed from responses.",
		},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brokercrawl_run_duration_seconds",
			Help:    "Histogram of full crawl run durations.",
			Buckets: prometheus.ExponentialBuckets(30, 2, 8),
		},
	)
)

// BrokerCrawled counts one processed broker by outcome ("success"/"failed").
func BrokerCrawled(status string) {
	brokersCrawledTotal.WithLabelValues(status).Inc()
}

// RetryObserved counts one retry by cause ("auth"/"server"/"transport").
func RetryObserved(reason string) {
	requestRetriesTotal.WithLabelValues(reason).Inc()
}

// SessionRefreshed counts one re-authentication handshake.
func SessionRefreshed() {
	sessionRefreshesTotal.Inc()
}

// RecordsParsed counts parsed trade records.
func RecordsParsed(n int) {
	recordsParsedTotal.Add(float64(n))
}

// ObserveRunDuration records a completed run's wall time.
func ObserveRunDuration(d time.Duration) {
	runDurationSeconds.Observe(d.Seconds())
}
