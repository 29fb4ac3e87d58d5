package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "flipflop-test",
		MaxRefreshCount:        5,
	})
}

func newTestUser(t *testing.T) *identity.User {
	t.Helper()
	user, err := identity.NewUser("Jana@Example.cz", "secret123", "Jana", "Nováková")
	require.NoError(t, err)
	return user
}

type authFixture struct {
	svc       *AuthService
	users     *MockUserRepository
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:     new(MockUserRepository),
		jwt:       newTestJWTService(),
		blacklist: auth.NewInMemoryTokenBlacklist(),
	}
	f.svc = NewAuthService(f.users, f.jwt, f.blacklist, zap.NewNop())
	return f
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the user and signs in", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("ExistsByEmail", mock.Anything, "jana@example.cz").Return(false, nil)
		f.users.On("Save", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
			return u.Email == "jana@example.cz" && u.Phone == "+420777123456" && !u.IsAdmin
		})).Return(nil)

		resp, err := f.svc.Register(ctx, RegisterRequest{
			Email: " Jana@Example.CZ ", Password: "secret123", FirstName: "Jana", LastName: "Nováková", Phone: "+420777123456",
		})
		require.NoError(t, err)
		assert.Equal(t, "jana@example.cz", resp.User.Email)

		claims, err := f.jwt.ValidateAccessToken(resp.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID.String(), claims.UserID)
		assert.False(t, claims.IsAdmin)
	})

	t.Run("email taken", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("ExistsByEmail", mock.Anything, "jana@example.cz").Return(true, nil)

		_, err := f.svc.Register(ctx, RegisterRequest{Email: "jana@example.cz", Password: "secret123"})
		assert.Equal(t, "ALREADY_EXISTS", shared.ErrorCode(err))
		f.users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("weak password", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("ExistsByEmail", mock.Anything, "jana@example.cz").Return(false, nil)

		_, err := f.svc.Register(ctx, RegisterRequest{Email: "jana@example.cz", Password: "password"})
		assert.Equal(t, "INVALID_PASSWORD", shared.ErrorCode(err))
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t)
	inactive := newTestUser(t)
	inactive.Deactivate()

	tests := []struct {
		name     string
		found    *identity.User
		findErr  error
		password string
		wantCode string
		wantErr  error
	}{
		{name: "valid credentials", found: user, password: "secret123"},
		{name: "wrong password", found: user, password: "secret124", wantCode: "INVALID_CREDENTIALS"},
		{name: "unknown email", findErr: shared.ErrNotFound, password: "secret123", wantCode: "INVALID_CREDENTIALS"},
		{name: "deactivated", found: inactive, password: "secret123", wantCode: "ACCOUNT_DEACTIVATED"},
		{name: "store failure", findErr: errors.New("connection refused"), password: "secret123", wantErr: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			if tt.found != nil {
				f.users.On("FindByEmail", mock.Anything, "jana@example.cz").Return(tt.found, nil)
			} else {
				f.users.On("FindByEmail", mock.Anything, "jana@example.cz").Return(nil, tt.findErr)
			}

			resp, err := f.svc.Login(ctx, LoginRequest{Email: "JANA@example.cz", Password: tt.password})
			switch {
			case tt.wantCode != "":
				assert.Equal(t, tt.wantCode, shared.ErrorCode(err))
			case tt.wantErr != nil:
				assert.EqualError(t, err, tt.wantErr.Error())
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, resp.Tokens.AccessToken)
				assert.Equal(t, user.ID, resp.User.ID)
			}
		})
	}
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := newTestUser(t)
	user.GrantAdmin()
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	pair, err := f.jwt.GenerateTokenPair(auth.Subject{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	resp, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin, "role changes apply on refresh")

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, "TOKEN_REVOKED", shared.ErrorCode(err))

	_, err = f.svc.Refresh(ctx, resp.Tokens.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_RefreshRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.Refresh(ctx, "not-a-token")
		assert.Equal(t, "TOKEN_INVALID", shared.ErrorCode(err))
	})

	t.Run("access token presented as refresh", func(t *testing.T) {
		f := newAuthFixture()
		pair, err := f.jwt.GenerateTokenPair(auth.Subject{UserID: uuid.New(), Email: "a@b.cz"})
		require.NoError(t, err)
		_, err = f.svc.Refresh(ctx, pair.AccessToken)
		assert.Equal(t, "TOKEN_INVALID", shared.ErrorCode(err))
	})

	t.Run("deactivated user", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t)
		user.Deactivate()
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		pair, err := f.jwt.GenerateTokenPair(auth.Subject{UserID: user.ID, Email: user.Email})
		require.NoError(t, err)

		_, err = f.svc.Refresh(ctx, pair.RefreshToken)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", shared.ErrorCode(err))
	})

	t.Run("deleted user", func(t *testing.T) {
		f := newAuthFixture()
		id := uuid.New()
		f.users.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)
		pair, err := f.jwt.GenerateTokenPair(auth.Subject{UserID: id, Email: "gone@example.cz"})
		require.NoError(t, err)

		_, err = f.svc.Refresh(ctx, pair.RefreshToken)
		assert.Equal(t, "TOKEN_INVALID", shared.ErrorCode(err))
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := newTestUser(t)
	pair, err := f.jwt.GenerateTokenPair(auth.Subject{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	access, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, access, pair.RefreshToken))

	assert.ErrorIs(t, auth.CheckRevoked(ctx, f.blacklist, access), auth.ErrTokenBlacklisted)
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, "TOKEN_REVOKED", shared.ErrorCode(err))
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := newTestUser(t)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Save", mock.Anything, user).Return(nil).Once()
	pair, err := f.jwt.GenerateTokenPair(auth.Subject{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, claims, ChangePasswordRequest{OldPassword: "wrong1234", NewPassword: "newsecret1"})
	assert.Equal(t, "INVALID_PASSWORD", shared.ErrorCode(err))

	require.NoError(t, f.svc.ChangePassword(ctx, claims, ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret1"}))
	assert.True(t, user.VerifyPassword("newsecret1"))
	assert.ErrorIs(t, auth.CheckRevoked(ctx, f.blacklist, claims), auth.ErrTokenBlacklisted)
	f.users.AssertExpectations(t)
}

func TestAuthService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := newTestUser(t)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Delete", mock.Anything, user.ID).Return(nil).Once()
	pair, err := f.jwt.GenerateTokenPair(auth.Subject{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	err = f.svc.DeleteAccount(ctx, claims, DeleteAccountRequest{Password: "wrong1234"})
	assert.Equal(t, "INVALID_PASSWORD", shared.ErrorCode(err))
	f.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.NoError(t, auth.CheckRevoked(ctx, f.blacklist, claims))

	require.NoError(t, f.svc.DeleteAccount(ctx, claims, DeleteAccountRequest{Password: "secret123"}))
	assert.ErrorIs(t, auth.CheckRevoked(ctx, f.blacklist, claims), auth.ErrTokenBlacklisted)
	f.users.AssertExpectations(t)
}
