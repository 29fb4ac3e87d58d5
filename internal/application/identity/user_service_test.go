package identity

import (
	"context"
	"testing"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAddressRepository is a mock implementation of identity.AddressRepository
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.DeliveryAddress, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.DeliveryAddress), args.Error(1)
}

func (m *MockAddressRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.DeliveryAddress, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]identity.DeliveryAddress), args.Error(1)
}

func (m *MockAddressRepository) Save(ctx context.Context, a *identity.DeliveryAddress) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockPaymentMethodRepository is a mock implementation of identity.PaymentMethodRepository
type MockPaymentMethodRepository struct {
	mock.Mock
}

func (m *MockPaymentMethodRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]identity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) Save(ctx context.Context, pm *identity.PaymentMethod) error {
	return m.Called(ctx, pm).Error(0)
}

func (m *MockPaymentMethodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type userFixture struct {
	svc       *UserService
	users     *MockUserRepository
	addresses *MockAddressRepository
	methods   *MockPaymentMethodRepository
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:     new(MockUserRepository),
		addresses: new(MockAddressRepository),
		methods:   new(MockPaymentMethodRepository),
	}
	f.svc = NewUserService(f.users, f.addresses, f.methods, zap.NewNop())
	return f
}

func testAddressRequest() AddressRequest {
	return AddressRequest{FirstName: "Jana", LastName: "Nováková", Street: "Dlouhá 12", City: "Praha", PostalCode: "110 00"}
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newUserFixture()
	user := newTestUser(t)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Save", mock.Anything, user).Return(nil)

	phone := "+420777000111"
	resp, err := f.svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		Phone:       &phone,
		Preferences: map[string]any{"newsletter": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jana", resp.FirstName)
	assert.Equal(t, phone, resp.Phone)
	assert.Equal(t, true, resp.Preferences["newsletter"])
}

func TestUserService_AddAddress(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("first address becomes default", func(t *testing.T) {
		f := newUserFixture()
		f.addresses.On("FindByUser", mock.Anything, userID).Return([]identity.DeliveryAddress{}, nil)
		f.addresses.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.AddAddress(ctx, userID, testAddressRequest())
		require.NoError(t, err)
		assert.True(t, resp.IsDefault)
		assert.Equal(t, "Czech Republic", resp.Country)
	})

	t.Run("later address keeps the existing default", func(t *testing.T) {
		f := newUserFixture()
		first, err := identity.NewDeliveryAddress(userID, testAddressRequest().fields(), true)
		require.NoError(t, err)
		f.addresses.On("FindByUser", mock.Anything, userID).Return([]identity.DeliveryAddress{*first}, nil)
		f.addresses.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.AddAddress(ctx, userID, testAddressRequest())
		require.NoError(t, err)
		assert.False(t, resp.IsDefault)
	})

	t.Run("missing city", func(t *testing.T) {
		f := newUserFixture()
		f.addresses.On("FindByUser", mock.Anything, userID).Return([]identity.DeliveryAddress{}, nil)
		req := testAddressRequest()
		req.City = " "

		_, err := f.svc.AddAddress(ctx, userID, req)
		assert.Equal(t, "INVALID_ADDRESS", shared.ErrorCode(err))
		f.addresses.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestUserService_AddressOwnership(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	owner := uuid.New()
	address, err := identity.NewDeliveryAddress(owner, testAddressRequest().fields(), false)
	require.NoError(t, err)
	f.addresses.On("FindByID", mock.Anything, address.ID).Return(address, nil)
	f.addresses.On("Save", mock.Anything, address).Return(nil)
	f.addresses.On("Delete", mock.Anything, address.ID).Return(nil).Once()

	stranger := uuid.New()
	_, err = f.svc.UpdateAddress(ctx, stranger, address.ID, testAddressRequest())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteAddress(ctx, stranger, address.ID), shared.ErrNotFound)

	req := testAddressRequest()
	req.Street = "Krátká 3"
	req.IsDefault = true
	resp, err := f.svc.UpdateAddress(ctx, owner, address.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Krátká 3", resp.Street)
	assert.True(t, resp.IsDefault)

	require.NoError(t, f.svc.DeleteAddress(ctx, owner, address.ID))
	f.addresses.AssertExpectations(t)
}

func TestUserService_PaymentMethods(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	userID := uuid.New()
	f.methods.On("Save", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.AddPaymentMethod(ctx, userID, PaymentMethodRequest{Type: "payu", Provider: "PayU", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "payu", resp.Type)
	assert.True(t, resp.IsActive)
	assert.NotNil(t, resp.Metadata)

	_, err = f.svc.AddPaymentMethod(ctx, userID, PaymentMethodRequest{Type: "bitcoin"})
	assert.Equal(t, "INVALID_PAYMENT_METHOD", shared.ErrorCode(err))

	method, err := identity.NewPaymentMethod(userID, identity.PaymentMethodCard, "visa", nil, false)
	require.NoError(t, err)
	f.methods.On("FindByID", mock.Anything, method.ID).Return(method, nil)
	f.methods.On("Delete", mock.Anything, method.ID).Return(nil).Once()

	assert.ErrorIs(t, f.svc.DeletePaymentMethod(ctx, uuid.New(), method.ID), shared.ErrNotFound)
	require.NoError(t, f.svc.DeletePaymentMethod(ctx, userID, method.ID))
	f.methods.AssertExpectations(t)
}
