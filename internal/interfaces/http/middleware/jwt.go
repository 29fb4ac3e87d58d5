package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"github.com/flipflop/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "user_id"
	JWTEmailKey    = "jwt_email"
	JWTIsAdminKey  = "jwt_is_admin"
	JWTDegradedKey = "jwt_degraded"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

var (
	errUserNotFound     = errors.New("user no longer exists")
	errUserInactive     = errors.New("user is deactivated")
	errLookupFailed     = errors.New("user lookup failed")
	errMissingBearer    = errors.New("missing bearer token")
	errNotAdministrator = errors.New("administrator role required")
)

// UserLookup resolves the account behind a token
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional for checking revoked tokens
	TokenBlacklist auth.TokenBlacklist
	// Users is required; every request re-reads the account
	Users UserLookup
	// TrustTokenOnLookupFailure admits a valid token with its own claims when
	// the user store errors with anything but NotFound
	TrustTokenOnLookupFailure bool
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require authentication
	SkipPathPrefixes []string
	// Optional callback if token is invalid (default: return 401)
	OnError func(c *gin.Context, err error)
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(jwtService *auth.JWTService, users UserLookup) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		Users:      users,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/uploads",
		},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(jwtService *auth.JWTService, users UserLookup) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService, users))
}

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			handleAuthError(c, cfg, errMissingBearer)
			return
		}
		if err := authenticate(c, cfg, tokenString); err != nil {
			handleAuthError(c, cfg, err)
			return
		}
		c.Next()
	}
}

// OptionalJWTAuthMiddleware attaches the caller's identity when a valid token is
// present and lets anonymous requests through
func OptionalJWTAuthMiddleware(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		if err := authenticate(c, cfg, tokenString); err != nil && cfg.Logger != nil {
			cfg.Logger.Debug("Ignoring unusable token on public route", zap.Error(err))
		}
		c.Next()
	}
}

// RequireAdmin rejects callers whose account is not an administrator. In the
// degraded mode entered by TrustTokenOnLookupFailure the token's role snapshot
// decides.
func RequireAdmin(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetJWTClaims(c) == nil {
			abortAuth(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !IsAdmin(c) {
			if log != nil {
				log.Warn("Admin route denied",
					zap.String("user_id", GetJWTUserID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.Error(errNotAdministrator),
				)
			}
			abortAuth(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			return
		}
		if IsDegraded(c) && log != nil {
			log.Warn("Admin route admitted on token claims, user store unavailable",
				zap.String("user_id", GetJWTUserID(c)))
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// authenticate validates the token, checks revocation and loads the account,
// storing the resulting identity on the gin context
func authenticate(c *gin.Context, cfg JWTMiddlewareConfig, tokenString string) error {
	claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
	if err != nil {
		return err
	}
	ctx := c.Request.Context()

	if cfg.TokenBlacklist != nil {
		if err := auth.CheckRevoked(ctx, cfg.TokenBlacklist, claims); err != nil {
			if errors.Is(err, auth.ErrTokenBlacklisted) {
				return err
			}
			// Revocation store outage fails open; the token itself is valid.
			if cfg.Logger != nil {
				cfg.Logger.Error("Failed to check token blacklist",
					zap.String("jti", claims.ID),
					zap.Error(err))
			}
		}
	}

	email, isAdmin, degraded := claims.Email, claims.IsAdmin, false
	user, err := cfg.Users.FindByID(ctx, claims.UserUUID())
	switch {
	case err == nil:
		if !user.IsActive {
			return errUserInactive
		}
		email, isAdmin = user.Email, user.IsAdmin
	case errors.Is(err, shared.ErrNotFound):
		return errUserNotFound
	case cfg.TrustTokenOnLookupFailure:
		degraded = true
		if cfg.Logger != nil {
			cfg.Logger.Warn("User lookup failed, trusting token claims",
				zap.String("user_id", claims.UserID),
				zap.Error(err))
		}
	default:
		if cfg.Logger != nil {
			cfg.Logger.Error("User lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return errLookupFailed
	}

	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTEmailKey, email)
	c.Set(JWTIsAdminKey, isAdmin)
	c.Set(JWTDegradedKey, degraded)

	ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
	c.Request = c.Request.WithContext(ctx)
	return nil
}

// handleAuthError handles authentication errors
func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}

	status := http.StatusUnauthorized
	errorCode := "UNAUTHORIZED"
	errorMessage := "Authentication required"

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		errorCode = "TOKEN_EXPIRED"
		errorMessage = "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		errorCode = "TOKEN_REVOKED"
		errorMessage = "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingUserID):
		errorCode = "TOKEN_INVALID"
		errorMessage = "Invalid token"
	case errors.Is(err, errUserNotFound):
		errorCode = "TOKEN_INVALID"
		errorMessage = "User no longer exists"
	case errors.Is(err, errUserInactive):
		status = http.StatusForbidden
		errorCode = "ACCOUNT_DEACTIVATED"
		errorMessage = "Account is deactivated"
	case errors.Is(err, errLookupFailed):
		status = http.StatusServiceUnavailable
		errorCode = "AUTH_UNAVAILABLE"
		errorMessage = "Authentication is temporarily unavailable"
	}

	abortAuth(c, status, errorCode, errorMessage)
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// MustGetJWTClaims retrieves JWT claims from gin.Context or panics if not found
func MustGetJWTClaims(c *gin.Context) *auth.Claims {
	claims := GetJWTClaims(c)
	if claims == nil {
		panic("jwt claims not found in context")
	}
	return claims
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTEmail retrieves the caller's current email
func GetJWTEmail(c *gin.Context) string {
	return c.GetString(JWTEmailKey)
}

// IsAdmin reports whether the authenticated caller is an administrator
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(JWTIsAdminKey)
}

// IsDegraded reports whether the identity came from token claims alone
func IsDegraded(c *gin.Context) bool {
	return c.GetBool(JWTDegradedKey)
}
