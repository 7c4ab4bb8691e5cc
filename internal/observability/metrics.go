package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bookings        *prometheus.CounterVec
	bookingValue    *prometheus.CounterVec
	payments        *prometheus.CounterVec
	reportCache     *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and business collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_bookings_created_total",
		Help: "Bookings created by initial status.",
	}, []string{"status"})
	bookingValue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_booking_sell_value_total",
		Help: "Sell value of created bookings by currency.",
	}, []string{"currency"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_payments_recorded_total",
		Help: "Client and supplier payments recorded.",
	}, []string{"kind"})
	reportCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_cache_requests_total",
		Help: "Report cache lookups by result.",
	}, []string{"report", "result"})
	registry.MustRegister(requests, duration, bookings, bookingValue, payments, reportCache,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		bookings:        bookings,
		bookingValue:    bookingValue,
		payments:        payments,
		reportCache:     reportCache,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// BookingCreated counts a new booking and its sell value.
func (m *Metrics) BookingCreated(status, currency string, sell float64) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(status).Inc()
	if sell > 0 {
		m.bookingValue.WithLabelValues(currency).Add(sell)
	}
}

// PaymentRecorded counts a client or supplier payment.
func (m *Metrics) PaymentRecorded(kind string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(kind).Inc()
}

// ReportCacheLookup counts a cache hit or miss for a report.
func (m *Metrics) ReportCacheLookup(report string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.reportCache.WithLabelValues(report, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
