// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instrumentation for authentication and HTTP traffic.

Metrics collected:

  - folio_auth_logins_total{outcome}: login attempts by result.
  - folio_auth_session_checks_total{outcome}: session resolutions by result.
  - folio_auth_sessions_swept_total: expired session rows purged.
  - folio_http_request_duration_seconds{method,route,status}: handler latency.

All collectors are registered on the [prometheus.Registerer] given to [New],
so tests can use an isolated registry.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "folio"

// Metrics holds the registered collectors.
type Metrics struct {
	logins          *prometheus.CounterVec
	sessionChecks   *prometheus.CounterVec
	sessionsSwept   prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of login attempts by outcome",
		}, []string{"outcome"}),

		sessionChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "session_checks_total",
			Help:      "Total number of session resolutions by outcome",
		}, []string{"outcome"}),

		sessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_swept_total",
			Help:      "Total number of expired session rows deleted",
		}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// LoginAttempt records one login attempt.
func (m *Metrics) LoginAttempt(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// SessionCheck records one session resolution.
func (m *Metrics) SessionCheck(outcome string) {
	m.sessionChecks.WithLabelValues(outcome).Inc()
}

// SessionsSwept records purged session rows.
func (m *Metrics) SessionsSwept(count int64) {
	if count > 0 {
		m.sessionsSwept.Add(float64(count))
	}
}

// Middleware observes request latency, labelled by the chi route pattern
// rather than the raw path to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		startTime := time.Now()
		wrapped := chimiddleware.NewWrapResponseWriter(writer, request.ProtoMajor)

		next.ServeHTTP(wrapped, request)

		status := wrapped.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requestDuration.
			WithLabelValues(request.Method, routePattern(request), strconv.Itoa(status)).
			Observe(time.Since(startTime).Seconds())
	})
}

func routePattern(request *http.Request) string {
	if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
		if pattern := routeContext.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
