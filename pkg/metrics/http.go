package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics instruments the dev server's handlers.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// NewHTTPMetrics registers request collectors on reg and serves them from gatherer.
func NewHTTPMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_devserver_request_duration_seconds",
		Help:    "Duration of dev server requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
	reg.MustRegister(duration)
	return &HTTPMetrics{duration: duration, gatherer: gatherer}
}

// Observe records one served request.
func (h *HTTPMetrics) Observe(method string, status int, duration time.Duration) {
	if h == nil || h.duration == nil {
		return
	}
	h.duration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (h *HTTPMetrics) Handler() http.Handler {
	if h == nil || h.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})
}
