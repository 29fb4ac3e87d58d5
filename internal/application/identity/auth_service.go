package identity

import (
	"context"
	"errors"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Register creates a customer account and signs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := identity.NormalizeEmail(req.Email)

	// Check if email already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "User with this email already exists")
	}

	user, err := identity.NewUser(email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if req.Phone != "" {
		if err := user.UpdateProfile(user.FirstName, user.LastName, req.Phone, nil); err != nil {
			return nil, err
		}
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return s.signIn(user)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
		}
		return nil, err
	}

	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}
	if !user.IsActive {
		s.logger.Warn("Login attempt for deactivated account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.signIn(user)
}

// Refresh rotates a refresh token. The presented token is revoked so it
// cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}
	if err := auth.CheckRevoked(ctx, s.blacklist, claims); err != nil {
		return nil, tokenError(err)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserUUID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TOKEN_INVALID", "User no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	pair, err := s.jwtService.RefreshTokenPair(claims, subjectOf(user))
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, tokenError(err)
	}
	if err := auth.Revoke(ctx, s.blacklist, claims); err != nil {
		s.logger.Error("Failed to revoke rotated refresh token", zap.Error(err))
	}

	return &AuthResponse{Tokens: pair, User: ToUserResponse(user)}, nil
}

// Logout revokes the access token of the current session and, when given,
// the matching refresh token
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if err := auth.Revoke(ctx, s.blacklist, access); err != nil {
		return err
	}
	if refreshToken != "" {
		refresh, err := s.jwtService.ValidateRefreshToken(refreshToken)
		if err == nil && refresh.UserID == access.UserID {
			if err := auth.Revoke(ctx, s.blacklist, refresh); err != nil {
				return err
			}
		}
	}
	s.logger.Info("User logged out", zap.String("user_id", access.UserID))
	return nil
}

// ChangePassword replaces the password and ends every other session of the user
func (s *AuthService) ChangePassword(ctx context.Context, claims *auth.Claims, req ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, claims.UserUUID())
	if err != nil {
		return err
	}
	if err := user.ChangePassword(req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, claims.UserID, s.jwtService.RefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke sessions after password change", zap.Error(err))
	}

	s.logger.Info("User password changed", zap.String("user_id", claims.UserID))
	return nil
}

// DeleteAccount removes the user with their addresses, payment methods, cart
// and orders, then revokes every token they hold
func (s *AuthService) DeleteAccount(ctx context.Context, claims *auth.Claims, req DeleteAccountRequest) error {
	user, err := s.userRepo.FindByID(ctx, claims.UserUUID())
	if err != nil {
		return err
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Account deletion with wrong password", zap.String("user_id", claims.UserID))
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return err
	}
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, claims.UserID, s.jwtService.RefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke sessions after account deletion", zap.Error(err))
	}

	s.logger.Info("User account deleted", zap.String("user_id", claims.UserID))
	return nil
}

func (s *AuthService) signIn(user *identity.User) (*AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(subjectOf(user))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return &AuthResponse{Tokens: pair, User: ToUserResponse(user)}, nil
}

func subjectOf(u *identity.User) auth.Subject {
	return auth.Subject{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}

// tokenError maps JWT errors to domain errors
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingUserID):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
	return err
}
