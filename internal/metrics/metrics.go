package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks the number of outbound API calls to Business Central.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bc_api_requests_total",
			Help: "Total number of Business Central API requests made (by endpoint, method, and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration measures the duration of outbound Business Central API calls.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bc_api_request_duration_seconds",
			Help:    "Duration of Business Central API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	// TokenRefreshesTotal counts client-credentials exchanges by result.
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bc_token_refreshes_total",
			Help: "Number of OAuth token refreshes (by result).",
		},
		[]string{"result"},
	)

	// TokenRefreshDuration measures token endpoint latency.
	TokenRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bc_token_refresh_duration_seconds",
			Help:    "Duration of OAuth token requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CustomerSyncsTotal counts customer sync job runs by result.
	CustomerSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bc_customer_syncs_total",
			Help: "Number of customer sync runs (by result).",
		},
		[]string{"result"},
	)

	// CustomersSynced reports the size of the last synced customer list.
	CustomersSynced = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bc_customers_synced",
			Help: "Number of customers returned by the last successful sync.",
		},
		[]string{"tenant", "company"},
	)

	// NATSPublishErrors tracks NATS publish failures by subject.
	NATSPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Number of NATS publish failures by subject.",
		},
		[]string{"subject"},
	)
)

// IncRequest increments the Business Central API request counter.
func IncRequest(endpoint, method, status string) {
	RequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncTokenRefresh increments the token refresh counter.
func IncTokenRefresh(result string) {
	TokenRefreshesTotal.WithLabelValues(result).Inc()
}

// IncCustomerSync increments the sync job counter.
func IncCustomerSync(result string) {
	CustomerSyncsTotal.WithLabelValues(result).Inc()
}

// SetCustomersSynced records the customer count of the last sync.
func SetCustomersSynced(tenant, company string, n int) {
	CustomersSynced.WithLabelValues(tenant, company).Set(float64(n))
}

// ObserveDuration records elapsed time since start into a Histogram, HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case prometheus.Histogram:
		metric.Observe(duration)
	}
}

// IncNATSPublishError increments the NATS publish error counter for the given subject.
func IncNATSPublishError(subject string) {
	NATSPublishErrors.WithLabelValues(subject).Inc()
}
