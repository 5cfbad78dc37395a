package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics exposes Prometheus observability primitives for the API.
type HTTPMetrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	loginAttempts *prometheus.CounterVec
	guardBlocks   *prometheus.CounterVec
}

// NewHTTPMetrics registers and returns Prometheus metrics for the server.
func NewHTTPMetrics() *HTTPMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crewbase_api_requests_total",
		Help: "Counts API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crewbase_api_duration_seconds",
		Help:    "API request latency per method/route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crewbase_login_attempts_total",
		Help: "Login attempts by platform and outcome.",
	}, []string{"platform", "outcome"})

	guardBlocks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crewbase_guard_blocks_total",
		Help: "Requests rejected by the brute-force guards, by scope.",
	}, []string{"scope"})

	prometheus.MustRegister(
		requests,
		duration,
		loginAttempts,
		guardBlocks,
	)

	return &HTTPMetrics{
		requests:      requests,
		duration:      duration,
		loginAttempts: loginAttempts,
		guardBlocks:   guardBlocks,
	}
}

// ObserveRequest records one handled request with its latency.
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveLogin records a login attempt outcome per platform.
func (m *HTTPMetrics) ObserveLogin(platform, outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(platform, outcome).Inc()
}

// ObserveGuardBlock records a request refused by a brute-force guard.
func (m *HTTPMetrics) ObserveGuardBlock(scope string) {
	if m == nil {
		return
	}
	m.guardBlocks.WithLabelValues(scope).Inc()
}

// MetricsMiddleware observes every request against the matched route,
// so path parameters do not explode label cardinality.
func MetricsMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
