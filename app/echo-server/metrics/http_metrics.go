package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analytics_http_request_duration_seconds",
		Help:    "Latency of analytics API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	RequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_http_requests_total",
		Help: "Total analytics API requests served",
	}, []string{"method", "route", "status"})

	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analytics_http_requests_in_flight",
		Help: "Requests currently being handled",
	})
)

func Init() {
	prometheus.MustRegister(RequestDuration, RequestTotal, InFlight)
}

// Middleware records latency per route template, so /segments/:id is one
// series regardless of the id.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}

			InFlight.Inc()
			start := time.Now()
			err := next(c)
			InFlight.Dec()

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := []string{c.Request().Method, route, strconv.Itoa(status)}

			RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}
