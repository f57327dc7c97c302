package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chairbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "code"},
	)

	skippedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Malformed records ignored while decoding or resolving snapshots.",
		},
		[]string{"kind"},
	)

	backendFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_fetches_total",
			Help:      "Backend snapshot fetches by resource and outcome.",
		},
		[]string{"resource", "outcome"},
	)

	snapshotFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_fallbacks_total",
			Help:      "Reads served from the local snapshot store because the backend failed.",
		},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder deliveries by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, skippedRecords, backendFetches, snapshotFallbacks, remindersSent)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncHTTP counts a served request. code is the status class, e.g. "2xx".
func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

func IncSkippedRecord(kind string) {
	skippedRecords.WithLabelValues(kind).Inc()
}

func IncBackendFetch(resource, outcome string) {
	backendFetches.WithLabelValues(resource, outcome).Inc()
}

func IncSnapshotFallback() {
	snapshotFallbacks.Inc()
}

func IncReminder(outcome string) {
	remindersSent.WithLabelValues(outcome).Inc()
}
