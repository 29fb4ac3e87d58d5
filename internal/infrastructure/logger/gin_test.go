package logger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(level zapcore.Level) (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(level)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-123")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	return router, recorded
}

func requestEntry(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware(t *testing.T) {
	t.Run("success logs info with request fields", func(t *testing.T) {
		router, recorded := newLoggedRouter(zapcore.DebugLevel)
		router.GET("/api/products/:id", func(c *gin.Context) {
			c.Set("user_id", "user-7")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/products/abc?fields=name", nil)
		req.Header.Set("User-Agent", "Test-Agent/1.0")
		router.ServeHTTP(w, req)

		entry := requestEntry(t, recorded)
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "req-123", fields["request_id"])
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/api/products/abc", fields["path"])
		assert.Equal(t, "/api/products/:id", fields["route"])
		assert.Equal(t, "user-7", fields["user_id"])
		assert.Equal(t, "fields=name", fields["query"])
		assert.Equal(t, "Test-Agent/1.0", fields["user_agent"])
		assert.EqualValues(t, http.StatusOK, fields["status"])
	})

	t.Run("unmatched route omits route field", func(t *testing.T) {
		router, recorded := newLoggedRouter(zapcore.DebugLevel)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

		fields := requestEntry(t, recorded).ContextMap()
		assert.NotContains(t, fields, "route")
		assert.NotContains(t, fields, "query")
		assert.NotContains(t, fields, "user_id")
	})

	t.Run("status picks the level", func(t *testing.T) {
		tests := []struct {
			status int
			want   zapcore.Level
		}{
			{http.StatusNotFound, zapcore.WarnLevel},
			{http.StatusConflict, zapcore.WarnLevel},
			{http.StatusBadGateway, zapcore.ErrorLevel},
		}
		for _, tt := range tests {
			router, recorded := newLoggedRouter(zapcore.DebugLevel)
			router.GET("/x", func(c *gin.Context) { c.Status(tt.status) })
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.want, requestEntry(t, recorded).Level, "status %d", tt.status)
		}
	})

	t.Run("health probes log at debug", func(t *testing.T) {
		router, recorded := newLoggedRouter(zapcore.InfoLevel)
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, recorded.All())
	})

	t.Run("request context carries the scoped logger", func(t *testing.T) {
		router, recorded := newLoggedRouter(zapcore.InfoLevel)
		router.GET("/x", func(c *gin.Context) {
			assert.Equal(t, "req-123", GetRequestID(c.Request.Context()))
			L(c.Request.Context()).Info("inside handler")
			GetGinLogger(c).Info("via gin")
			c.Status(http.StatusOK)
		})
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		inside := recorded.FilterMessage("inside handler").All()
		require.Len(t, inside, 1)
		assert.Equal(t, "req-123", inside[0].ContextMap()["request_id"])
		via := recorded.FilterMessage("via gin").All()
		require.Len(t, via, 1)
		assert.Equal(t, "req-123", via[0].ContextMap()["request_id"])
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-500")
		c.Next()
	})
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "ERR_INTERNAL", body.Error.Code)
	assert.Equal(t, "req-500", body.Error.RequestID)
	require.Len(t, recorded.All(), 1)
	entry := recorded.All()[0]
	assert.Equal(t, "Panic recovered", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["panic"])
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	l := GetGinLogger(c)
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("noop") })
}
