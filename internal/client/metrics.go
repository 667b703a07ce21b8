package client

import (
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments pipeline calls with Prometheus collectors.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	csrfBootstraps  prometheus.Counter
}

// NewMetrics registers the pipeline collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_platform_requests_total",
		Help: "Total platform API calls by outcome",
	}, []string{"method", "endpoint", "outcome"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_platform_request_duration_seconds",
		Help:    "Duration of platform API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	csrfBootstraps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_csrf_bootstraps_total",
		Help: "Times the CSRF token had to be bootstrapped",
	})

	registry.MustRegister(requestTotal, requestDuration, csrfBootstraps)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		csrfBootstraps:  csrfBootstraps,
	}
}

// Handler exposes the pipeline registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return m.handler
}

var idSegment = regexp.MustCompile(`/\d+`)

// observe records one finished call. Numeric path segments collapse to a
// placeholder to keep label cardinality bounded.
func (m *Metrics) observe(method, path string, kind FailureKind, d time.Duration) {
	if m == nil {
		return
	}
	endpoint := idSegment.ReplaceAllString(path, "/:id")
	outcome := "success"
	if kind != FailureNone {
		outcome = string(kind)
	}
	m.requestTotal.WithLabelValues(method, endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

func (m *Metrics) observeBootstrap() {
	if m == nil {
		return
	}
	m.csrfBootstraps.Inc()
}
