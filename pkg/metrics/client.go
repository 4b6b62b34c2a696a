package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records gateway calls, persistence health and checkout outcomes.
// A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
}

// NewClientMetrics registers the client collectors on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_gateway_request_duration_seconds",
		Help:    "Duration of remote API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})
	requestErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_gateway_request_errors_total",
		Help: "Remote API calls that produced an error, by error code.",
	}, []string{"endpoint", "code"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_persist_failures_total",
		Help: "Snapshot writes that failed and left the store memory-only.",
	}, []string{"store"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_submissions_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(requestDuration, requestErrors, persistFailures, checkouts)
	return &ClientMetrics{
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		persistFailures: persistFailures,
		checkouts:       checkouts,
	}
}

// ObserveRequest records one remote call. status is the HTTP status or 0 on transport failure.
func (c *ClientMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	if c == nil || c.requestDuration == nil {
		return
	}
	c.requestDuration.WithLabelValues(normalizeLabel(endpoint), statusClass(status)).Observe(duration.Seconds())
}

// IncRequestError counts a failed call by its normalized error code.
func (c *ClientMetrics) IncRequestError(endpoint, code string) {
	if c == nil || c.requestErrors == nil {
		return
	}
	c.requestErrors.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(code)).Inc()
}

// IncPersistFailure counts a failed durable write for the named store.
func (c *ClientMetrics) IncPersistFailure(store string) {
	if c == nil || c.persistFailures == nil {
		return
	}
	c.persistFailures.WithLabelValues(normalizeLabel(store)).Inc()
}

// IncCheckout counts a submission outcome ("completed", "failed", "discarded").
func (c *ClientMetrics) IncCheckout(outcome string) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func statusClass(status int) string {
	switch {
	case status <= 0:
		return "transport"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
