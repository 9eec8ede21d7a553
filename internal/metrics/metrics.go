package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rentdapp"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Local API requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	backendCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Backend REST calls by service and outcome.",
		},
		[]string{"service", "outcome"},
	)

	backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Backend REST call latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	actionsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dispatched_total",
			Help:      "Store actions dispatched by type.",
		},
		[]string{"type"},
	)

	paymentSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_steps_total",
			Help:      "Payment step transitions by step and status.",
		},
		[]string{"step", "status"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Backend response cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, backendCalls, backendLatency, actionsDispatched, paymentSteps, cacheLookups)
	})
}

// IncHTTP counts a local API request.
func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, statusClass(code)).Inc()
}

// ObserveBackend records one backend call.
func ObserveBackend(service, outcome string, elapsed time.Duration) {
	backendCalls.WithLabelValues(service, outcome).Inc()
	backendLatency.WithLabelValues(service).Observe(elapsed.Seconds())
}

// IncAction counts a dispatched store action.
func IncAction(actionType string) {
	actionsDispatched.WithLabelValues(actionType).Inc()
}

// IncPaymentStep counts a payment step status change.
func IncPaymentStep(step, status string) {
	paymentSteps.WithLabelValues(step, status).Inc()
}

// IncCache counts a cache hit or miss.
func IncCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
