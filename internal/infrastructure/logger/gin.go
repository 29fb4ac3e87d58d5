package logger

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ginLoggerKey = "logger"

// quietPrefixes are probe and scrape paths whose successful hits log at debug
var quietPrefixes = []string{"/health", "/metrics"}

// GinMiddleware writes one access entry per request. Handlers reach the
// request-scoped logger through GetGinLogger or L(c.Request.Context()).
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request
		requestID := c.GetString("request_id")

		scoped := base.With(zap.String("method", req.Method), zap.String("path", req.URL.Path))
		ctx := req.Context()
		if requestID != "" {
			ctx = context.WithValue(ctx, RequestIDKey, requestID)
		}
		c.Request = req.WithContext(WithContext(ctx, scoped))
		access := scoped.With(zap.String("request_id", requestID))
		c.Set(ginLoggerKey, access)

		c.Next()

		status := c.Writer.Status()
		ce := access.Check(accessLevel(req.URL.Path, status), "HTTP Request")
		if ce == nil {
			return
		}
		ce.Write(accessFields(c, status, time.Since(start))...)
	}
}

func accessFields(c *gin.Context, status int, latency time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("client_ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
		zap.Int("body_size", c.Writer.Size()),
	}
	optional := map[string]string{
		"route":   c.FullPath(),
		"user_id": c.GetString("user_id"),
		"query":   c.Request.URL.RawQuery,
	}
	if optional["route"] == c.Request.URL.Path {
		delete(optional, "route")
	}
	for key, value := range optional {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
	}
	return fields
}

func accessLevel(path string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return zapcore.DebugLevel
		}
	}
	return zapcore.InfoLevel
}

// Recovery turns a handler panic into a logged stack trace and a 500 in the
// API error envelope
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			requestID := c.GetString("request_id")
			base.Error("Panic recovered",
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", recovered),
				zap.Stack("stacktrace"),
			)
			errInfo := gin.H{"code": "ERR_INTERNAL", "message": "An unexpected error occurred"}
			if requestID != "" {
				errInfo["requestId"] = requestID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": errInfo})
		}()
		c.Next()
	}
}

// GetGinLogger returns the logger GinMiddleware stored, or a no-op logger
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Value(ginLoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
