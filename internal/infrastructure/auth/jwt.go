package auth

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingUserID      = errors.New("missing user_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims are the FlipFlop token claims. Email and IsAdmin are a snapshot
// taken at issue time; the gateway re-reads the user on every request.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"is_admin,omitempty"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
}

type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	TokenType             string    `json:"tokenType"`
}

// tokenKind is the per-type signing key and lifetime
type tokenKind struct {
	secret []byte
	ttl    time.Duration
}

// JWTService issues and verifies HS256 token pairs. Access and refresh
// tokens use separate secrets when RefreshSecret is configured.
type JWTService struct {
	kinds           map[TokenType]tokenKind
	issuer          string
	maxRefreshCount int
	now             func() time.Time
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := cmp.Or(cfg.RefreshSecret, cfg.Secret)
	return &JWTService{
		kinds: map[TokenType]tokenKind{
			TokenTypeAccess:  {secret: []byte(cfg.Secret), ttl: cfg.AccessTokenExpiration},
			TokenTypeRefresh: {secret: []byte(refreshSecret), ttl: cfg.RefreshTokenExpiration},
		},
		issuer:          cfg.Issuer,
		maxRefreshCount: cfg.MaxRefreshCount,
		now:             time.Now,
	}
}

// Subject identifies the user a token pair is issued for
type Subject struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
}

func (s *JWTService) sign(sub Subject, typ TokenType, issuedAt time.Time, refreshCount int) (string, time.Time, error) {
	kind := s.kinds[typ]
	expires := issuedAt.Add(kind.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   sub.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(issuedAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
		UserID:       sub.UserID.String(),
		Email:        sub.Email,
		IsAdmin:      sub.IsAdmin,
		TokenType:    typ,
		RefreshCount: refreshCount,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(kind.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expires, nil
}

func (s *JWTService) issue(sub Subject, refreshCount int) (*TokenPair, error) {
	now := s.now()
	pair := &TokenPair{TokenType: "Bearer"}
	var err error
	if pair.AccessToken, pair.AccessTokenExpiresAt, err = s.sign(sub, TokenTypeAccess, now, 0); err != nil {
		return nil, err
	}
	// refresh tokens never carry the admin flag
	bare := Subject{UserID: sub.UserID, Email: sub.Email}
	if pair.RefreshToken, pair.RefreshTokenExpiresAt, err = s.sign(bare, TokenTypeRefresh, now, refreshCount); err != nil {
		return nil, err
	}
	return pair, nil
}

// GenerateTokenPair issues a fresh access and refresh token
func (s *JWTService) GenerateTokenPair(sub Subject) (*TokenPair, error) {
	return s.issue(sub, 0)
}

// RefreshTokenPair rotates a validated refresh token. sub is the user as
// currently stored, so role changes take effect on refresh.
func (s *JWTService) RefreshTokenPair(refresh *Claims, sub Subject) (*TokenPair, error) {
	switch {
	case refresh.TokenType != TokenTypeRefresh:
		return nil, ErrInvalidTokenType
	case s.maxRefreshCount > 0 && refresh.RefreshCount >= s.maxRefreshCount:
		return nil, ErrMaxRefreshExceeded
	case refresh.UserID != sub.UserID.String():
		return nil, ErrInvalidClaims
	}
	return s.issue(sub, refresh.RefreshCount+1)
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeRefresh)
}

func (s *JWTService) parser() *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.issuer))
	}
	return jwt.NewParser(opts...)
}

func (s *JWTService) validate(tokenString string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	secret := s.kinds[expected].secret
	_, err := s.parser().ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	}

	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// UserUUID parses the user ID claim
func (c *Claims) UserUUID() uuid.UUID {
	id, _ := uuid.Parse(c.UserID)
	return id
}

// IssuedAtTime returns the iat claim, or the zero time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// RemainingTTL is the time until expiry, never negative
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if remaining := time.Until(c.ExpiresAt.Time); remaining > 0 {
		return remaining
	}
	return 0
}

func (s *JWTService) AccessTokenExpiration() time.Duration {
	return s.kinds[TokenTypeAccess].ttl
}

func (s *JWTService) RefreshTokenExpiration() time.Duration {
	return s.kinds[TokenTypeRefresh].ttl
}
