package supplier

import (
	"net/url"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
)

// Supplier is a dropshipping partner that can feed the catalog and receive orders
type Supplier struct {
	shared.BaseAggregateRoot
	Name              string
	ContactEmail      string
	ContactPhone      string
	Address           string
	APIURL            string
	APIKey            string
	APISecret         string
	APIConfig         map[string]any
	IsActive          bool
	AutoSyncProducts  bool
	AutoForwardOrders bool
}

// Fields are the editable attributes of a supplier
type Fields struct {
	Name              string
	ContactEmail      string
	ContactPhone      string
	Address           string
	APIURL            string
	APIKey            string
	APISecret         string
	APIConfig         map[string]any
	IsActive          bool
	AutoSyncProducts  bool
	AutoForwardOrders bool
}

// NewSupplier creates a supplier from f
func NewSupplier(f Fields) (*Supplier, error) {
	s := &Supplier{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	if err := s.apply(f); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the supplier attributes. An empty APISecret keeps the stored one.
func (s *Supplier) Update(f Fields) error {
	if f.APISecret == "" {
		f.APISecret = s.APISecret
	}
	if err := s.apply(f); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// HasAPI reports whether the supplier exposes a catalogue API
func (s *Supplier) HasAPI() bool {
	return s.APIURL != ""
}

// CanSync reports whether a catalogue sync may run
func (s *Supplier) CanSync() error {
	if !s.IsActive {
		return shared.NewDomainError("SUPPLIER_INACTIVE", "Supplier is not active")
	}
	if !s.HasAPI() {
		return shared.NewDomainError("SUPPLIER_NO_API", "Supplier has no API configured")
	}
	return nil
}

func (s *Supplier) apply(f Fields) error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Supplier name cannot be empty")
	}
	if f.APIURL != "" {
		u, err := url.Parse(f.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return shared.NewDomainError("INVALID_API_URL", "Supplier API URL must be an absolute http(s) URL")
		}
	}
	if f.APIConfig == nil {
		f.APIConfig = map[string]any{}
	}
	s.Name = name
	s.ContactEmail = strings.TrimSpace(f.ContactEmail)
	s.ContactPhone = strings.TrimSpace(f.ContactPhone)
	s.Address = f.Address
	s.APIURL = strings.TrimRight(f.APIURL, "/")
	s.APIKey = f.APIKey
	s.APISecret = f.APISecret
	s.APIConfig = f.APIConfig
	s.IsActive = f.IsActive
	s.AutoSyncProducts = f.AutoSyncProducts
	s.AutoForwardOrders = f.AutoForwardOrders
	return nil
}
