package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request IDs accepted from clients
const MaxRequestIDLength = 128

// TracingConfig configures the request span middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are served without a span (health probes, metrics scrapes)
	SkipPaths []string
}

// DefaultTracingConfig traces everything except the probes
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "flipflop-api",
		Enabled:     true,
		SkipPaths:   []string{"/health", "/health/live", "/health/ready", "/metrics"},
	}
}

// Tracing returns the span middleware with DefaultTracingConfig
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig opens one server span per request through otelgin,
// named after the matched route.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, skipped := skip[r.URL.Path]
		return !skipped
	}))
}

// TracingAttributeInjector tags the active span with the request ID, the
// route and the caller. It annotates after the chain returns so the JWT
// claims set by route-group guards are visible.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			annotate(c, span)
		}
	}
}

func annotate(c *gin.Context, span trace.Span) {
	attrs := make([]attribute.KeyValue, 0, 4)
	if id := GetRequestID(c); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if route := c.FullPath(); route != "" {
		attrs = append(attrs, attribute.String("http.route", route))
	}
	if userID := GetJWTUserID(c); userID != "" {
		attrs = append(attrs,
			attribute.String("user_id", userID),
			attribute.Bool("user.is_admin", IsAdmin(c)),
		)
	}
	span.SetAttributes(attrs...)
}

// SpanErrorMarker sets the span status to Error for 4xx and 5xx responses,
// using the status text as the description.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		status := c.Writer.Status()
		if !span.IsRecording() || status < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
		if last := c.Errors.Last(); last != nil {
			span.RecordError(last.Err)
		}
	}
}
