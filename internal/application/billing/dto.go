package billing

import (
	"time"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// DocumentResponse is an issued invoice or proforma
type DocumentResponse struct {
	ID        uuid.UUID           `json:"id"`
	Number    string              `json:"number"`
	FileURL   string              `json:"file_url,omitempty"`
	Data      billing.InvoiceData `json:"invoice_data"`
	IssuedAt  time.Time           `json:"issued_at"`
	PaidAt    *time.Time          `json:"paid_at,omitempty"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

// OrderDocumentsResponse lists the billing documents of an order
type OrderDocumentsResponse struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Proforma    *DocumentResponse `json:"proforma,omitempty"`
	Invoice     *DocumentResponse `json:"invoice,omitempty"`
}

func toInvoiceResponse(inv *billing.Invoice) *DocumentResponse {
	return &DocumentResponse{
		ID:       inv.ID,
		Number:   inv.InvoiceNumber,
		FileURL:  inv.FileURL,
		Data:     inv.Data,
		IssuedAt: inv.IssuedAt,
		PaidAt:   inv.PaidAt,
	}
}

func toProformaResponse(p *billing.ProformaInvoice) *DocumentResponse {
	expires := p.ExpiresAt
	return &DocumentResponse{
		ID:        p.ID,
		Number:    p.ProformaNumber,
		FileURL:   p.FileURL,
		Data:      p.Data,
		IssuedAt:  p.IssuedAt,
		ExpiresAt: &expires,
	}
}

// CompanySettingsResponse is the seller identity printed on invoices
type CompanySettingsResponse struct {
	Name        string    `json:"name"`
	Street      string    `json:"street"`
	City        string    `json:"city"`
	PostalCode  string    `json:"postal_code"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code"`
	CountryName string    `json:"country_name"`
	ICO         string    `json:"ico"`
	DIC         string    `json:"dic"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Website     string    `json:"website"`
	BankAccount string    `json:"bank_account"`
	IBAN        string    `json:"iban"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateCompanySettingsRequest changes the provided settings fields
type UpdateCompanySettingsRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Street      *string `json:"street" binding:"omitempty,max=200"`
	City        *string `json:"city" binding:"omitempty,max=100"`
	PostalCode  *string `json:"postal_code" binding:"omitempty,max=20"`
	Country     *string `json:"country" binding:"omitempty,max=100"`
	CountryCode *string `json:"country_code" binding:"omitempty,len=2"`
	CountryName *string `json:"country_name" binding:"omitempty,max=100"`
	ICO         *string `json:"ico" binding:"omitempty,max=20"`
	DIC         *string `json:"dic" binding:"omitempty,max=20"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Website     *string `json:"website" binding:"omitempty,url"`
	BankAccount *string `json:"bank_account" binding:"omitempty,max=50"`
	IBAN        *string `json:"iban" binding:"omitempty,max=34"`
}

func toSettingsResponse(s *billing.CompanySettings) *CompanySettingsResponse {
	return &CompanySettingsResponse{
		Name:        s.Name,
		Street:      s.Street,
		City:        s.City,
		PostalCode:  s.PostalCode,
		Country:     s.Country,
		CountryCode: s.CountryCode,
		CountryName: s.CountryName,
		ICO:         s.ICO,
		DIC:         s.DIC,
		Phone:       s.Phone,
		Email:       s.Email,
		Website:     s.Website,
		BankAccount: s.BankAccount,
		IBAN:        s.IBAN,
		UpdatedAt:   s.UpdatedAt,
	}
}
