// Package metrics exposes the Prometheus collectors of the auth service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authcore"

// Login outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	signupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Total number of accounts created",
		},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of login attempts",
		},
		[]string{"outcome"},
	)

	tokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of tokens issued",
		},
		[]string{"kind"}, // session, email_verification, password_reset
	)

	tokensConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_consumed_total",
			Help:      "Total number of single-use token presentations",
		},
		[]string{"kind", "outcome"},
	)

	deliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_delivery_failures_total",
			Help:      "Total number of token emails that could not be delivered",
		},
		[]string{"kind"},
	)

	gateDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_denials_total",
			Help:      "Total number of requests rejected by the access gate",
		},
		[]string{"reason"}, // unauthenticated, not_verified, forbidden
	)

	housekeepingClearedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_cleared_tokens_total",
			Help:      "Total number of expired tokens cleared by housekeeping",
		},
	)
)

// RecordSignup increments the signup counter.
func RecordSignup() {
	signupsTotal.Inc()
}

// RecordLogin counts a login attempt by outcome.
func RecordLogin(success bool) {
	loginsTotal.WithLabelValues(outcome(success)).Inc()
}

// RecordTokenIssued counts an issued token of the given kind.
func RecordTokenIssued(kind string) {
	tokensIssuedTotal.WithLabelValues(kind).Inc()
}

// RecordTokenConsumed counts a presented single-use token by outcome.
func RecordTokenConsumed(kind string, success bool) {
	tokensConsumedTotal.WithLabelValues(kind, outcome(success)).Inc()
}

func RecordDeliveryFailure(kind string) {
	deliveryFailuresTotal.WithLabelValues(kind).Inc()
}

func RecordGateDenial(reason string) {
	gateDenialsTotal.WithLabelValues(reason).Inc()
}

func RecordHousekeeping(cleared int64) {
	if cleared > 0 {
		housekeepingClearedTotal.Add(float64(cleared))
	}
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// Handler returns the Prometheus metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTP RED metrics. Requests are labelled by the matched
// ServeMux pattern, never the raw path, so tokens in URLs do not leak into
// label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
