package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type observation struct {
	method, route string
	status        int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, route, status})
}

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func metricsRouter(observer HTTPObserver, mp *sdkmetric.MeterProvider) *gin.Engine {
	router := gin.New()
	if mp != nil {
		router.Use(HTTPMetrics(observer, mp.Meter("http.server")))
	} else {
		router.Use(HTTPMetrics(observer, nil))
	}
	router.GET("/api/v1/products/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	return router
}

func hit(router *gin.Engine, path string) {
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestHTTPMetrics_ObserverUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	router := metricsRouter(obs, nil)

	hit(router, "/api/v1/products/1")
	hit(router, "/api/v1/products/2")
	hit(router, "/missing")

	require.Len(t, obs.obs, 3)
	assert.Equal(t, observation{"GET", "/api/v1/products/:id", 200}, obs.obs[0])
	assert.Equal(t, "/api/v1/products/:id", obs.obs[1].route)
	assert.Equal(t, observation{"GET", "unmatched", 404}, obs.obs[2])
}

func TestHTTPMetrics_PrometheusRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := metrics.New()
	router := metricsRouter(reg, nil)

	hit(router, "/api/v1/products/1")
	hit(router, "/boom")

	n, err := testutil.GatherAndCount(reg.Gatherer(), "flipflop_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHTTPMetrics_OTelInstruments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mp, reader := setupTestMeter(t)
	router := metricsRouter(nil, mp)

	hit(router, "/api/v1/products/1")
	hit(router, "/api/v1/products/2")
	hit(router, "/boom")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	total := findMetricByName(rm, "http_server_request_total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var requests int64
	for _, dp := range sum.DataPoints {
		requests += dp.Value
	}
	assert.Equal(t, int64(3), requests)
	assert.Len(t, sum.DataPoints, 2, "one series per status code")

	require.NotNil(t, findMetricByName(rm, "http_server_request_duration_seconds"))
	require.NotNil(t, findMetricByName(rm, "http_server_response_size_bytes"))

	active := findMetricByName(rm, "http_server_active_requests")
	require.NotNil(t, active)
	activeSum, ok := active.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, activeSum.DataPoints, 1)
	assert.Equal(t, int64(0), activeSum.DataPoints[0].Value)
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := metricsRouter(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetricsStatusGroup(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {204, "2xx"}, {301, "3xx"}, {404, "4xx"}, {422, "4xx"}, {502, "5xx"}, {100, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPMetricsStatusGroup(tt.code))
	}
}
