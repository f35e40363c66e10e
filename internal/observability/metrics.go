package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the feed pipeline and the API.
type Metrics struct {
	FetchesTotal  *prometheus.CounterVec // labels: outcome={success,timeout,connection_failed,http_status,invalid_payload,internal}
	FetchDuration prometheus.Histogram
	SnapshotAge   prometheus.Gauge // seconds since the upstream's updatedAt stamp

	ProxyRequests *prometheus.CounterVec // labels: route, status
}

// NewMetrics creates and registers all collectors with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.SnapshotAge,
		m.ProxyRequests,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so parallel tests
// don't trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertablu",
			Name:      "feed_fetches_total",
			Help:      "Feed fetch attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alertablu",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of upstream feed fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alertablu",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the cached snapshot relative to its upstream timestamp.",
		}),
		ProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertablu",
			Name:      "proxy_requests_total",
			Help:      "Proxy endpoint requests by route and response status.",
		}, []string{"route", "status"}),
	}
}
