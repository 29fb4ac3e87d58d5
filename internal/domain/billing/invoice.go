package billing

import (
	"context"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceNumberPrefix  = "INV"
	ProformaNumberPrefix = "PRO"
	// ProformaValidity is how long a proforma invoice can be paid
	ProformaValidity = 14 * 24 * time.Hour
)

// Party is a name and address block on an invoice
type Party struct {
	Name       string `json:"name"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ICO        string `json:"ico,omitempty"`
	DIC        string `json:"dic,omitempty"`
	Website    string `json:"website,omitempty"`
}

// InvoiceLine is an invoiced item
type InvoiceLine struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// InvoiceData is the immutable snapshot an invoice document is rendered from
type InvoiceData struct {
	Number       string          `json:"number"`
	OrderNumber  string          `json:"order_number"`
	IssuedAt     time.Time       `json:"issued_at"`
	DueAt        *time.Time      `json:"due_at,omitempty"`
	Seller       Party           `json:"seller"`
	Customer     Party           `json:"customer"`
	Lines        []InvoiceLine   `json:"lines"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	PaymentRef   string          `json:"payment_ref,omitempty"`
}

// Invoice is the final tax document issued once an order is paid
type Invoice struct {
	shared.BaseEntity
	OrderID       uuid.UUID
	InvoiceNumber string
	FileURL       string
	Data          InvoiceData
	IssuedAt      time.Time
	PaidAt        *time.Time
}

// NewInvoice creates a paid invoice
func NewInvoice(orderID uuid.UUID, number string, data InvoiceData, paidAt time.Time) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	now := time.Now()
	data.Number = number
	data.IssuedAt = now
	return &Invoice{
		BaseEntity:    shared.NewBaseEntity(),
		OrderID:       orderID,
		InvoiceNumber: number,
		Data:          data,
		IssuedAt:      now,
		PaidAt:        &paidAt,
	}, nil
}

// ProformaInvoice is the payment request issued at checkout
type ProformaInvoice struct {
	shared.BaseEntity
	OrderID        uuid.UUID
	ProformaNumber string
	FileURL        string
	Data           InvoiceData
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// NewProformaInvoice creates a proforma that expires after ProformaValidity
func NewProformaInvoice(orderID uuid.UUID, number string, data InvoiceData) (*ProformaInvoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Proforma number cannot be empty")
	}
	now := time.Now()
	expires := now.Add(ProformaValidity)
	data.Number = number
	data.IssuedAt = now
	data.DueAt = &expires
	return &ProformaInvoice{
		BaseEntity:     shared.NewBaseEntity(),
		OrderID:        orderID,
		ProformaNumber: number,
		Data:           data,
		IssuedAt:       now,
		ExpiresAt:      expires,
	}, nil
}

// IsExpired reports whether the proforma is past its due date at t
func (p *ProformaInvoice) IsExpired(t time.Time) bool {
	return t.After(p.ExpiresAt)
}

// InvoiceRepository persists invoices and proformas
type InvoiceRepository interface {
	SaveInvoice(ctx context.Context, inv *Invoice) error
	SaveProforma(ctx context.Context, p *ProformaInvoice) error
	FindInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	FindProformaByOrder(ctx context.Context, orderID uuid.UUID) (*ProformaInvoice, error)
	NextNumber(ctx context.Context, prefix string, at time.Time) (string, error)
}

// SettingsRepository loads and stores the company settings singleton
type SettingsRepository interface {
	// Get returns the settings, creating the default row if none exists
	Get(ctx context.Context) (*CompanySettings, error)
	Save(ctx context.Context, s *CompanySettings) error
}
