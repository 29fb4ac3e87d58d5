package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers struct {
	users map[uuid.UUID]*identity.User
	err   error
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func newTestJWTService() *auth.JWTService {
	cfg := config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	}
	return auth.NewJWTService(cfg)
}

func newTestUser(t *testing.T, admin bool) *identity.User {
	t.Helper()
	u, err := identity.NewUser("petr@example.cz", "secret123", "Petr", "Novak")
	require.NoError(t, err)
	if admin {
		u.GrantAdmin()
	}
	return u
}

func tokenFor(t *testing.T, svc *auth.JWTService, u *identity.User, adminClaim bool) *auth.TokenPair {
	t.Helper()
	pair, err := svc.GenerateTokenPair(auth.Subject{UserID: u.ID, Email: u.Email, IsAdmin: adminClaim})
	require.NoError(t, err)
	return pair
}

func usersWith(list ...*identity.User) *stubUsers {
	s := &stubUsers{users: map[uuid.UUID]*identity.User{}}
	for _, u := range list {
		s.users[u.ID] = u
	}
	return s
}

func serve(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func protectedRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetJWTUserID(c),
			"email":    GetJWTEmail(c),
			"is_admin": IsAdmin(c),
			"degraded": IsDegraded(c),
		})
	})
	return router
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	user := newTestUser(t, false)
	router := protectedRouter(DefaultJWTConfig(svc, usersWith(user)))

	rec := serve(router, "/test", tokenFor(t, svc, user, false).AccessToken)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, user.ID.String(), body["user_id"])
	assert.Equal(t, "petr@example.cz", body["email"])
	assert.Equal(t, false, body["degraded"])
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService()
	user := newTestUser(t, false)
	pair := tokenFor(t, svc, user, false)

	expired := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  -time.Hour,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "test-issuer",
	})
	expiredPair := tokenFor(t, expired, user, false)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage", "Bearer invalid-token", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"refresh as access", "Bearer " + pair.RefreshToken, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"expired", "Bearer " + expiredPair.AccessToken, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	}

	router := protectedRouter(DefaultJWTConfig(svc, usersWith(user)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestJWTAuthMiddleware_UserState(t *testing.T) {
	svc := newTestJWTService()

	t.Run("deleted user", func(t *testing.T) {
		user := newTestUser(t, false)
		rec := serve(protectedRouter(DefaultJWTConfig(svc, usersWith())), "/test", tokenFor(t, svc, user, false).AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_INVALID", errorCode(t, rec))
	})

	t.Run("deactivated user", func(t *testing.T) {
		user := newTestUser(t, false)
		user.Deactivate()
		rec := serve(protectedRouter(DefaultJWTConfig(svc, usersWith(user))), "/test", tokenFor(t, svc, user, false).AccessToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", errorCode(t, rec))
	})

	t.Run("lookup failure without fallback", func(t *testing.T) {
		user := newTestUser(t, false)
		users := &stubUsers{err: errors.New("connection refused")}
		rec := serve(protectedRouter(DefaultJWTConfig(svc, users)), "/test", tokenFor(t, svc, user, false).AccessToken)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "AUTH_UNAVAILABLE", errorCode(t, rec))
	})

	t.Run("lookup failure trusts token when enabled", func(t *testing.T) {
		user := newTestUser(t, false)
		cfg := DefaultJWTConfig(svc, &stubUsers{err: errors.New("connection refused")})
		cfg.TrustTokenOnLookupFailure = true
		rec := serve(protectedRouter(cfg), "/test", tokenFor(t, svc, user, true).AccessToken)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["degraded"])
		assert.Equal(t, true, body["is_admin"])
	})
}

func TestJWTAuthMiddleware_RoleComesFromStore(t *testing.T) {
	svc := newTestJWTService()
	user := newTestUser(t, true)
	// Token issued before the promotion still carries is_admin=false.
	rec := serve(protectedRouter(DefaultJWTConfig(svc, usersWith(user))), "/test", tokenFor(t, svc, user, false).AccessToken)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["is_admin"])
}

func TestJWTAuthMiddleware_RevokedToken(t *testing.T) {
	svc := newTestJWTService()
	user := newTestUser(t, false)
	pair := tokenFor(t, svc, user, false)
	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	bl := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, auth.Revoke(context.Background(), bl, claims))

	cfg := DefaultJWTConfig(svc, usersWith(user))
	cfg.TokenBlacklist = bl
	rec := serve(protectedRouter(cfg), "/test", pair.AccessToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(t, rec))
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	svc := newTestJWTService()
	cfg := DefaultJWTConfig(svc, usersWith())
	cfg.SkipPaths = append(cfg.SkipPaths, "/public")

	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	for _, p := range []string{"/public", "/health", "/api/v1/auth/login", "/swagger/index.html", "/uploads/products/a.jpg"} {
		router.GET(p, func(c *gin.Context) { c.Status(http.StatusOK) })
	}

	for _, p := range []string{"/public", "/health", "/api/v1/auth/login", "/swagger/index.html", "/uploads/products/a.jpg"} {
		t.Run(p, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, serve(router, p, "").Code)
		})
	}
}

func TestJWTAuthMiddleware_CustomOnError(t *testing.T) {
	svc := newTestJWTService()

	var captured error
	cfg := DefaultJWTConfig(svc, usersWith())
	cfg.OnError = func(c *gin.Context, err error) {
		captured = err
		c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"custom": "error"})
	}

	rec := serve(protectedRouter(cfg), "/test", "")

	assert.Error(t, captured)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestOptionalJWTAuthMiddleware(t *testing.T) {
	svc := newTestJWTService()
	admin := newTestUser(t, true)

	router := gin.New()
	router.Use(OptionalJWTAuthMiddleware(DefaultJWTConfig(svc, usersWith(admin))))
	router.GET("/products", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"is_admin": IsAdmin(c), "authenticated": GetJWTClaims(c) != nil})
	})

	tests := []struct {
		name          string
		token         string
		authenticated bool
	}{
		{"anonymous", "", false},
		{"invalid token", "nope", false},
		{"admin", tokenFor(t, svc, admin, true).AccessToken, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, "/products", tt.token)
			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]bool
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.authenticated, body["authenticated"])
			assert.Equal(t, tt.authenticated, body["is_admin"])
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestJWTService()
	customer := newTestUser(t, false)
	admin := newTestUser(t, true)

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc, usersWith(customer, admin)))
	router.GET("/admin", RequireAdmin(nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, "/admin", tokenFor(t, svc, customer, false).AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	// A stale admin claim does not outrank the stored role.
	rec = serve(router, "/admin", tokenFor(t, svc, customer, true).AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, "/admin", tokenFor(t, svc, admin, false).AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_WithoutAuthentication(t *testing.T) {
	router := gin.New()
	router.GET("/admin", RequireAdmin(nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetJWTClaims_NotFound(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.False(t, IsAdmin(c))
	assert.Panics(t, func() { MustGetJWTClaims(c) })
}
