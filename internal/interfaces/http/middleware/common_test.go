package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/api/v1/products", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func corsRequest(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/products", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSWithConfig(t *testing.T) {
	storefront := CORSConfig{
		AllowOrigins:     []string{"https://shop.flipflop.cz", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   string
		wantHeaders bool
	}{
		{"listed origin", storefront, "GET", "http://localhost:3000", 200, "http://localhost:3000", "true", true},
		{"second listed origin", storefront, "GET", "https://shop.flipflop.cz", 200, "https://shop.flipflop.cz", "true", true},
		{"unlisted origin", storefront, "GET", "http://evil.example", 200, "", "", false},
		{"same origin", storefront, "GET", "", 200, "", "", false},
		{"preflight listed", storefront, "OPTIONS", "http://localhost:3000", 204, "http://localhost:3000", "true", true},
		{"preflight unlisted", storefront, "OPTIONS", "http://evil.example", 204, "", "", false},
		{"default rejects cross origin", DefaultCORSConfig(), "GET", "http://localhost:3000", 200, "", "", false},
		{"default preflight", DefaultCORSConfig(), "OPTIONS", "http://localhost:3000", 204, "", "", false},
		{"wildcard drops credentials", CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true}, "GET", "http://any.example", 200, "*", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := corsRequest(corsRouter(tt.cfg), tt.method, tt.origin)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.wantHeaders {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestCORSWithConfig_HeaderValues(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins:  []string{"http://localhost:3000"},
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	w := corsRequest(corsRouter(cfg), "GET", "http://localhost:3000")

	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "X-Request-ID, Retry-After", w.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSWithConfig_DefaultsMethodsAndHeaders(t *testing.T) {
	w := corsRequest(corsRouter(CORSConfig{AllowOrigins: []string{"*"}}), "OPTIONS", "http://any.example")

	assert.Equal(t, 204, w.Code)
	assert.Equal(t, "GET, POST, PUT, DELETE, PATCH, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.Contains(t, cfg.ExposeHeaders, "Retry-After")
	assert.True(t, cfg.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	serveWith := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/test", nil)
		if header != "" {
			req.Header.Set(RequestIDHeader, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("generates a UUID", func(t *testing.T) {
		w := serveWith("")
		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps caller ID", func(t *testing.T) {
		w := serveWith("checkout-7f3a")
		assert.Equal(t, "checkout-7f3a", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "checkout-7f3a", w.Body.String())
	})

	t.Run("replaces oversized ID", func(t *testing.T) {
		w := serveWith(strings.Repeat("x", MaxRequestIDLength+1))
		assert.Len(t, w.Body.String(), 36)
	})
}

func TestSecureWithConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SecurityConfig
		want map[string]string
	}{
		{
			name: "defaults",
			cfg:  DefaultSecurityConfig(),
			want: map[string]string{
				"X-Frame-Options":           "DENY",
				"X-Content-Type-Options":    "nosniff",
				"Referrer-Policy":           "strict-origin-when-cross-origin",
				"Content-Security-Policy":   DefaultSecurityConfig().CSPDirective,
				"Permissions-Policy":        DefaultSecurityConfig().PermissionsPolicyDirective,
				"Strict-Transport-Security": "",
			},
		},
		{
			name: "hsts with preload",
			cfg:  SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 600, HSTSIncludeSubdomains: true, HSTSPreload: true},
			want: map[string]string{
				"Strict-Transport-Security": "max-age=600; includeSubDomains; preload",
				"Content-Security-Policy":   "",
				"Permissions-Policy":        "",
			},
		},
		{
			name: "hsts plain",
			cfg:  SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 31536000},
			want: map[string]string{"Strict-Transport-Security": "max-age=31536000"},
		},
		{
			name: "custom directives",
			cfg: SecurityConfig{
				CSPEnabled: true, CSPDirective: "default-src 'self'",
				PermissionsPolicyEnabled: true, PermissionsPolicyDirective: "camera=()",
			},
			want: map[string]string{
				"Content-Security-Policy": "default-src 'self'",
				"Permissions-Policy":      "camera=()",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(SecureWithConfig(tt.cfg))
			router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

			for header, value := range tt.want {
				assert.Equal(t, value, w.Header().Get(header), header)
			}
		})
	}
}

func TestDefaultSecurityConfig(t *testing.T) {
	cfg := DefaultSecurityConfig()

	assert.False(t, cfg.HSTSEnabled)
	assert.Equal(t, 31536000, cfg.HSTSMaxAge)
	assert.Contains(t, cfg.CSPDirective, "frame-ancestors 'none'")
	assert.Contains(t, cfg.PermissionsPolicyDirective, "payment=()")
}
