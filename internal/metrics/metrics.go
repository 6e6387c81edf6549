// Package metrics holds the Prometheus collectors for the HTTP API and the
// Telegram reconciliation pipeline.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ReconcileTotal counts Telegram reconciliations by outcome.
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_reconcile_total",
			Help: "Telegram identity reconciliations by outcome.",
		},
		[]string{"outcome"},
	)

	// CredentialRaceRecoveries counts credential inserts that lost a
	// uniqueness race and were resolved by re-query.
	CredentialRaceRecoveries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credential_race_recoveries_total",
		Help: "Credential creations resolved by re-query after a unique violation.",
	})

	// RoleFallbacks counts role syncs that answered with the baseline role
	// because the store could not.
	RoleFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "role_fallbacks_total",
			Help: "Role synchronizations that fell back to the baseline role.",
		},
		[]string{"reason"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			ReconcileTotal, CredentialRaceRecoveries, RoleFallbacks,
		)
	})
}

// Handler serves the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Instrument records RPS, latency and in-flight requests. The route pattern
// is used as the path label to keep cardinality bounded.
func Instrument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		method := c.Method()
		code := strconv.Itoa(status)
		httpRequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, code).Inc()
		return err
	}
}
