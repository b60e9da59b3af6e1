// metrics.go registers the registry's Prometheus metrics against the default
// registry. They are scraped from the side-channel listener, never from the
// main API port.
//
// HTTP metrics are labelled by the Gin route template (c.FullPath(), e.g.
// /gems/:id), not the raw URL, so user-supplied gem names cannot blow up
// label cardinality.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts processed requests by method, route template,
	// and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration is the request latency histogram by method and
	// route template
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// GemPushesTotal counts push attempts by outcome: created, updated,
	// malformed, denied, error
	GemPushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gem_pushes_total",
			Help: "Total number of gem push attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// GemParseDuration tracks how long gem archive parsing takes
	GemParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gem_parse_duration_seconds",
			Help:    "Histogram of gem archive parse latencies.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// DBConnectionsOpen gauges the connection pool, polled in the background
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Current number of open database connections.",
		},
	)
)

// Push outcome label values
const (
	PushOutcomeCreated   = "created"
	PushOutcomeUpdated   = "updated"
	PushOutcomeMalformed = "malformed"
	PushOutcomeDenied    = "denied"
	PushOutcomeError     = "error"
)

// PollDBStats samples the connection pool gauge until stop is closed
func PollDBStats(db *sql.DB, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			DBConnectionsOpen.Set(float64(db.Stats().OpenConnections))
		case <-stop:
			slog.Debug("db stats poller stopped")
			return
		}
	}
}
