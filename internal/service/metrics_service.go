package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and the collection store.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	storeLoads      *prometheus.CounterVec
	storeLoadTime   *prometheus.HistogramVec
	storeSaveTime   *prometheus.HistogramVec
	storeSaveErrors *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	storeLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_load_total",
		Help: "Collection loads by outcome (hit, miss, corrupt, error)",
	}, []string{"collection", "result"})

	storeLoadTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_load_duration_seconds",
		Help:    "Latency of collection reads",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	storeSaveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_save_duration_seconds",
		Help:    "Latency of collection writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	storeSaveErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_save_errors_total",
		Help: "Failed collection writes",
	}, []string{"collection"})

	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"path"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, storeLoads, storeLoadTime, storeSaveTime, storeSaveErrors, rateLimited, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		storeLoads:      storeLoads,
		storeLoadTime:   storeLoadTime,
		storeSaveTime:   storeSaveTime,
		storeSaveErrors: storeSaveErrors,
		rateLimited:     rateLimited,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveRateLimited counts a request rejected by the limiter.
func (m *MetricsService) ObserveRateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(path).Inc()
}

// ObserveStoreLoad records a collection read and its outcome.
func (m *MetricsService) ObserveStoreLoad(collection, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeLoads.WithLabelValues(collection, result).Inc()
	if duration > 0 {
		m.storeLoadTime.WithLabelValues(collection).Observe(duration.Seconds())
	}
}

// ObserveStoreSave records a collection write.
func (m *MetricsService) ObserveStoreSave(collection string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeSaveTime.WithLabelValues(collection).Observe(duration.Seconds())
	if err != nil {
		m.storeSaveErrors.WithLabelValues(collection).Inc()
	}
}
