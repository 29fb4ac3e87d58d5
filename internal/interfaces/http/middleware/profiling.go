package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/flipflop/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Pyroscope label keys attached to request goroutines
const (
	profilingLabelMethod   = "http_method"
	profilingLabelRoute    = "http_route"
	profilingLabelResource = "resource"
)

// ProfilingConfig configures the profiling label middleware
type ProfilingConfig struct {
	Enabled          bool
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig skips probes, docs and static uploads
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/metrics"},
		SkipPathPrefixes: []string{"/swagger", "/uploads"},
	}
}

// Profiling returns the label middleware with DefaultProfilingConfig
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig tags the request's CPU samples with the method, the
// route template and the shop resource it belongs to, so flame graphs can
// be sliced by endpoint.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	skipped := func(path string) bool {
		if slices.Contains(cfg.SkipPaths, path) {
			return true
		}
		return slices.ContainsFunc(cfg.SkipPathPrefixes, func(p string) bool {
			return strings.HasPrefix(path, p)
		})
	}

	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path) {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	labels := map[string]string{profilingLabelMethod: c.Request.Method}
	if route := c.FullPath(); route != "" {
		labels[profilingLabelRoute] = route
		if res := routeResource(route); res != "" {
			labels[profilingLabelResource] = res
		}
	}
	return labels
}

// routeResource names the area a route template belongs to: the first
// segment after the /api/vN prefix, qualified by the next one for admin
// routes ("/api/v1/admin/suppliers/:id" is "admin/suppliers").
func routeResource(route string) string {
	segments := strings.FieldsFunc(route, func(r rune) bool { return r == '/' })
	if len(segments) >= 2 && segments[0] == "api" && isVersionSegment(segments[1]) {
		segments = segments[2:]
	}
	segments = slices.DeleteFunc(segments, func(s string) bool {
		return strings.HasPrefix(s, ":") || strings.HasPrefix(s, "*")
	})
	switch {
	case len(segments) == 0:
		return ""
	case segments[0] == "admin" && len(segments) > 1:
		return "admin/" + segments[1]
	default:
		return segments[0]
	}
}

// isVersionSegment reports whether s looks like "v1", "V12", ...
func isVersionSegment(s string) bool {
	if len(s) < 2 || (s[0] != 'v' && s[0] != 'V') {
		return false
	}
	return strings.Trim(s[1:], "0123456789") == ""
}
