package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, limit int, window time.Duration) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(limit, window)
	t.Cleanup(rl.Close)
	return rl
}

func drain(rl *RateLimiter, key string, n int) (allowed int) {
	for range n {
		if rl.Allow(key) {
			allowed++
		}
	}
	return allowed
}

func TestRateLimiter_Buckets(t *testing.T) {
	rl := newLimiter(t, 3, time.Minute)

	assert.Equal(t, 3, drain(rl, "10.0.0.1", 5))
	assert.Equal(t, 3, drain(rl, "10.0.0.2", 3), "keys have separate buckets")
	assert.Equal(t, 0, rl.Remaining("10.0.0.1"))
	assert.Equal(t, 3, rl.Remaining("10.0.0.9"), "unseen key reports the full limit")
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := newLimiter(t, 2, 100*time.Millisecond)
	require.Equal(t, 2, drain(rl, "k", 3))

	assert.Eventually(t, func() bool { return rl.Allow("k") }, time.Second, 20*time.Millisecond)
}

func TestRateLimiter_SetLimit(t *testing.T) {
	rl := newLimiter(t, 1, time.Minute)
	require.Equal(t, 1, drain(rl, "k", 2))

	rl.SetLimit(10, time.Millisecond)
	assert.Equal(t, 10, rl.Limit())
	assert.Eventually(t, func() bool { return rl.Allow("k") }, time.Second, 5*time.Millisecond,
		"existing bucket picks up the new rate")

	rl.SetLimit(0, time.Minute)
	assert.Equal(t, 50, drain(rl, "fresh", 50), "zero limit disables limiting")
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := newLimiter(t, 100, time.Hour)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed.Add(int32(drain(rl, "shared", 10)))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(100), allowed.Load())
}

func TestRateLimiter_CloseIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	assert.NotPanics(t, func() {
		rl.Close()
		rl.Close()
	})
}

func limitedEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), mw)
	r.POST("/api/v1/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/products", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func call(r http.Handler, method, target, ip string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = ip + ":40000"
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Middleware(t *testing.T) {
	r := limitedEngine(RateLimit(newLimiter(t, 2, time.Minute)))

	first := call(r, http.MethodGet, "/api/v1/products", "192.0.2.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/products", "192.0.2.1").Code)

	w := call(r, http.MethodGet, "/api/v1/products", "192.0.2.1", RequestIDHeader, "req-429")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code)
	assert.Equal(t, "req-429", resp.Error.RequestID)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/products", "192.0.2.2").Code,
		"other clients are unaffected")
}

func TestRateLimitByKey(t *testing.T) {
	byUser := RateLimitByKey(newLimiter(t, 1, time.Minute), func(c *gin.Context) string {
		return c.GetHeader("X-User")
	})
	r := limitedEngine(byUser)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/products", "192.0.2.1", "X-User", "ann").Code)
	assert.Equal(t, http.StatusTooManyRequests, call(r, http.MethodGet, "/api/v1/products", "192.0.2.2", "X-User", "ann").Code,
		"key follows the user across addresses")
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/products", "192.0.2.1", "X-User", "bob").Code)
}

func TestAuthRateLimit(t *testing.T) {
	shared := newLimiter(t, 1, time.Minute)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(shared))
	r.POST("/api/v1/auth/login", AuthRateLimit(shared), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/v1/auth/login", "192.0.2.7").Code,
		"auth bucket is namespaced away from the general one")

	w := call(r, http.MethodPost, "/api/v1/auth/login", "192.0.2.7")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code, "general limiter trips first")
}

func TestAuthRateLimit_Code(t *testing.T) {
	r := limitedEngine(AuthRateLimit(newLimiter(t, 1, time.Minute)))

	call(r, http.MethodPost, "/api/v1/auth/login", "192.0.2.8")
	w := call(r, http.MethodPost, "/api/v1/auth/login", "192.0.2.8")

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeTooManyRequests, resp.Error.Code)
}
