package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signet-id/signet/internal/models"
)

// Metrics encapsulates Prometheus instrumentation for the token lifecycle.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	issuedTotal     prometheus.Counter
	revokedTotal    prometheus.Counter
	verifications   *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheLatency    prometheus.Observer
	webhookTotal    *prometheus.CounterVec
}

// NewMetrics registers the core Prometheus collectors.
func NewMetrics() *Metrics {
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

	issuedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokens_issued_total",
		Help: "Total number of session tokens issued",
	})

	revokedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokens_revoked_total",
		Help: "Total number of session tokens explicitly revoked",
	})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_verifications_total",
		Help: "Token verification outcomes",
	}, []string{"result"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verification_cache_hits_total",
		Help: "Total verification cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verification_cache_misses_total",
		Help: "Total verification cache misses",
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "verification_cache_latency_seconds",
		Help:    "Latency of verification cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	webhookTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revocation_webhook_deliveries_total",
		Help: "Revocation webhook delivery outcomes",
	}, []string{"outcome"})

	registry.MustRegister(requestDuration, requestTotal, issuedTotal, revokedTotal, verifications, cacheHits, cacheMisses, cacheLatency, webhookTotal)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		issuedTotal:     issuedTotal,
		revokedTotal:    revokedTotal,
		verifications:   verifications,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheLatency:    cacheLatency,
		webhookTotal:    webhookTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordIssued counts a successful token issuance.
func (m *Metrics) RecordIssued() {
	if m == nil {
		return
	}
	m.issuedTotal.Inc()
}

// RecordRevoked counts a successful revocation.
func (m *Metrics) RecordRevoked() {
	if m == nil {
		return
	}
	m.revokedTotal.Inc()
}

// RecordVerification counts a verification outcome.
func (m *Metrics) RecordVerification(status models.VerificationStatus) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(string(status)).Inc()
}

// RecordCacheOperation records a verification cache hit or miss.
func (m *Metrics) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordWebhookDelivery counts a revocation event delivery attempt outcome.
func (m *Metrics) RecordWebhookDelivery(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.webhookTotal.WithLabelValues(outcome).Inc()
}
