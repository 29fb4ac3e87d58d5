// Package middleware provides the gin middleware of the shop API.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPObserver receives one observation per finished request
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// httpMetrics holds the OTel instruments exported over OTLP
type httpMetrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	responseSize    metric.Int64Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := meter.Int64Counter("http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency distribution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10))
	if err != nil {
		return nil, err
	}
	responseSize, err := meter.Int64Histogram("http_server_response_size_bytes",
		metric.WithDescription("HTTP response body size distribution in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 1000, 10000, 100000, 1000000, 5000000))
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics records every request into the Prometheus observer and, when a
// meter is given, into OTel instruments. Either may be nil.
func HTTPMetrics(observer HTTPObserver, meter metric.Meter) gin.HandlerFunc {
	var instruments *httpMetrics
	if meter != nil {
		if m, err := newHTTPMetrics(meter); err == nil {
			instruments = m
		}
	}
	if observer == nil && instruments == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		if instruments != nil {
			instruments.activeRequests.Add(ctx, 1)
		}

		c.Next()

		elapsed := time.Since(start)
		route := getRoutePattern(c)
		method := c.Request.Method
		status := c.Writer.Status()

		if observer != nil {
			observer.ObserveHTTP(method, route, status, elapsed)
		}
		if instruments == nil {
			return
		}
		instruments.activeRequests.Add(ctx, -1)
		base := metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		)
		instruments.requestTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		))
		instruments.requestDuration.Record(ctx, elapsed.Seconds(), base)
		if size := c.Writer.Size(); size > 0 {
			instruments.responseSize.Record(ctx, int64(size), base)
		}
	}
}

// getRoutePattern returns the route template instead of the raw path to keep
// label cardinality bounded
func getRoutePattern(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return "unmatched"
	}
	return route
}

// HTTPMetricsStatusGroup groups status codes into classes
func HTTPMetricsStatusGroup(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}
