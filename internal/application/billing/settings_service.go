package billing

import (
	"context"
	"strings"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/flipflop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SettingsService reads and edits the company settings
type SettingsService struct {
	repo   billing.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo billing.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// Get returns the settings, creating the defaults on first use
func (s *SettingsService) Get(ctx context.Context) (*CompanySettingsResponse, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(settings), nil
}

// Update applies the provided fields
func (s *SettingsService) Update(ctx context.Context, req UpdateCompanySettingsRequest) (*CompanySettingsResponse, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, shared.NewDomainError("INVALID_INPUT", "Company name cannot be empty")
		}
		settings.Name = name
	}
	set(&settings.Street, req.Street)
	set(&settings.City, req.City)
	set(&settings.PostalCode, req.PostalCode)
	set(&settings.Country, req.Country)
	set(&settings.CountryName, req.CountryName)
	set(&settings.ICO, req.ICO)
	set(&settings.DIC, req.DIC)
	set(&settings.Phone, req.Phone)
	set(&settings.Email, req.Email)
	set(&settings.Website, req.Website)
	set(&settings.BankAccount, req.BankAccount)
	set(&settings.IBAN, req.IBAN)
	if req.CountryCode != nil {
		settings.CountryCode = strings.ToUpper(strings.TrimSpace(*req.CountryCode))
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	s.logger.Info("Company settings updated", zap.String("name", settings.Name))
	return toSettingsResponse(settings), nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
