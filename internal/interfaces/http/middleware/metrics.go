package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfgops/ledger/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	in := telemetry.NewInstruments(meter)
	m := &httpMetrics{
		requests: in.Counter("http_server_request_total",
			"Total number of HTTP requests", "{request}"),
		duration: in.Histogram("http_server_request_duration_seconds",
			"HTTP request latency distribution in seconds", "s", telemetry.HTTPDurationBuckets),
		active: in.UpDownCounter("http_server_active_requests",
			"Number of in-flight HTTP requests", "{request}"),
	}
	return m, in.Err()
}

// HTTPMetrics records request count, latency and in-flight requests per
// route. A nil meter, or a meter that fails to build the instruments,
// yields a pass-through middleware.
func HTTPMetrics(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	if meter == nil {
		return passThrough
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.active.Add(ctx, 1)
		defer m.active.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := telemetry.AttrMethod.String(c.Request.Method)
		routeAttr := telemetry.AttrRoute.String(route)
		status := telemetry.AttrStatus.String(strconv.Itoa(c.Writer.Status()))
		m.requests.Add(ctx, 1, metric.WithAttributes(method, routeAttr, status))
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(method, routeAttr))
	}
}

func passThrough(c *gin.Context) { c.Next() }
