package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/credence/pkg/constants"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	AuthAttempts        *prometheus.CounterVec
	AuthLatency         *prometheus.HistogramVec
	TokenValidations    *prometheus.CounterVec
	FieldCipherFailures *prometheus.CounterVec
	RateLimitHits       *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPLatency         *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credence_auth_attempts_total",
				Help: "Total number of password authentication attempts.",
			},
			[]string{"result"},
		),
		AuthLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credence_auth_latency_seconds",
				Help:    "Latency of password authentication, including digest verification.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		TokenValidations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credence_token_validations_total",
				Help: "Total number of auth token validations.",
			},
			[]string{"result"},
		),
		FieldCipherFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credence_field_cipher_failures_total",
				Help: "Encrypted fields that failed to decrypt or encrypt.",
			},
			[]string{"operation"},
		),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credence_rate_limit_hits_total",
				Help: "Total number of rate limit hits.",
			},
			[]string{"scope"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credence_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credence_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "credence_http_requests_in_flight",
				Help: "HTTP requests currently being served.",
			},
		),
	}
}

// RecordAuthentication records the outcome of a password authentication.
func (m *Metrics) RecordAuthentication(result string, duration time.Duration) {
	m.AuthAttempts.WithLabelValues(result).Inc()
	m.AuthLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordTokenValidation records the outcome of a token validation.
func (m *Metrics) RecordTokenValidation(result string) {
	m.TokenValidations.WithLabelValues(result).Inc()
}

// RecordFieldCipherFailure records a field that could not be encrypted or decrypted.
func (m *Metrics) RecordFieldCipherFailure(operation string) {
	m.FieldCipherFailures.WithLabelValues(operation).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(scope constants.RateLimitScope) {
	m.RateLimitHits.WithLabelValues(string(scope)).Inc()
}

func (m *Metrics) RequestStarted() {
	m.HTTPInFlight.Inc()
}

// RequestFinished records a completed HTTP request.
func (m *Metrics) RequestFinished(method, route string, status int, duration time.Duration) {
	m.HTTPInFlight.Dec()
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
