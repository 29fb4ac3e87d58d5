package identity

import (
	"context"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages the signed-in user's profile, addresses and payment methods
type UserService struct {
	userRepo    identity.UserRepository
	addressRepo identity.AddressRepository
	methodRepo  identity.PaymentMethodRepository
	logger      *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo identity.UserRepository,
	addressRepo identity.AddressRepository,
	methodRepo identity.PaymentMethodRepository,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		addressRepo: addressRepo,
		methodRepo:  methodRepo,
		logger:      logger,
	}
}

// GetProfile returns the user
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// UpdateProfile applies the provided profile fields
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	first, last, phone := user.FirstName, user.LastName, user.Phone
	if req.FirstName != nil {
		first = *req.FirstName
	}
	if req.LastName != nil {
		last = *req.LastName
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if err := user.UpdateProfile(first, last, phone, req.Preferences); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ListAddresses lists the user's addresses, default first
func (s *UserService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]AddressResponse, error) {
	addresses, err := s.addressRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]AddressResponse, 0, len(addresses))
	for i := range addresses {
		out = append(out, toAddressResponse(&addresses[i]))
	}
	return out, nil
}

// AddAddress stores a new address. The user's first address becomes the default.
func (s *UserService) AddAddress(ctx context.Context, userID uuid.UUID, req AddressRequest) (*AddressResponse, error) {
	existing, err := s.addressRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	address, err := identity.NewDeliveryAddress(userID, req.fields(), req.IsDefault || len(existing) == 0)
	if err != nil {
		return nil, err
	}
	if err := s.addressRepo.Save(ctx, address); err != nil {
		return nil, err
	}
	resp := toAddressResponse(address)
	return &resp, nil
}

// UpdateAddress replaces an address of the user. The default flag can be
// set here but not cleared; another address must become default instead.
func (s *UserService) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, req AddressRequest) (*AddressResponse, error) {
	address, err := s.ownAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	if err := address.Update(req.fields()); err != nil {
		return nil, err
	}
	if req.IsDefault {
		address.IsDefault = true
	}
	if err := s.addressRepo.Save(ctx, address); err != nil {
		return nil, err
	}
	resp := toAddressResponse(address)
	return &resp, nil
}

// DeleteAddress removes an address of the user
func (s *UserService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.ownAddress(ctx, userID, addressID); err != nil {
		return err
	}
	return s.addressRepo.Delete(ctx, addressID)
}

// ListPaymentMethods lists the user's saved payment methods
func (s *UserService) ListPaymentMethods(ctx context.Context, userID uuid.UUID) ([]PaymentMethodResponse, error) {
	methods, err := s.methodRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentMethodResponse, 0, len(methods))
	for i := range methods {
		out = append(out, toPaymentMethodResponse(&methods[i]))
	}
	return out, nil
}

// AddPaymentMethod saves a payment method for the user
func (s *UserService) AddPaymentMethod(ctx context.Context, userID uuid.UUID, req PaymentMethodRequest) (*PaymentMethodResponse, error) {
	method, err := identity.NewPaymentMethod(userID, identity.PaymentMethodType(req.Type), req.Provider, req.Metadata, req.IsDefault)
	if err != nil {
		return nil, err
	}
	if err := s.methodRepo.Save(ctx, method); err != nil {
		return nil, err
	}
	resp := toPaymentMethodResponse(method)
	return &resp, nil
}

// DeletePaymentMethod removes a saved payment method of the user
func (s *UserService) DeletePaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	method, err := s.methodRepo.FindByID(ctx, methodID)
	if err != nil {
		return err
	}
	if method.UserID != userID {
		return shared.ErrNotFound
	}
	return s.methodRepo.Delete(ctx, methodID)
}

// ownAddress loads an address, hiding addresses of other users
func (s *UserService) ownAddress(ctx context.Context, userID, addressID uuid.UUID) (*identity.DeliveryAddress, error) {
	address, err := s.addressRepo.FindByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if !address.BelongsTo(userID) {
		return nil, shared.ErrNotFound
	}
	return address, nil
}
