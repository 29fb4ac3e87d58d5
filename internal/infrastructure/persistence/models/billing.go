package models

import (
	"time"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// InvoiceModel is the persistence model for a final invoice
type InvoiceModel struct {
	BaseModel
	OrderID       uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex"`
	InvoiceNumber string                    `gorm:"type:varchar(30);not null;uniqueIndex"`
	FileURL       string                    `gorm:"type:varchar(500)"`
	InvoiceData   JSON[billing.InvoiceData] `gorm:"type:jsonb;not null"`
	IssuedAt      time.Time                 `gorm:"not null"`
	PaidAt        *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseEntity:    m.BaseModel.entity(),
		OrderID:       m.OrderID,
		InvoiceNumber: m.InvoiceNumber,
		FileURL:       m.FileURL,
		Data:          m.InvoiceData.Data,
		IssuedAt:      m.IssuedAt,
		PaidAt:        m.PaidAt,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		OrderID:       inv.OrderID,
		InvoiceNumber: inv.InvoiceNumber,
		FileURL:       inv.FileURL,
		InvoiceData:   NewJSON(inv.Data),
		IssuedAt:      inv.IssuedAt,
		PaidAt:        inv.PaidAt,
	}
	m.setEntity(inv.BaseEntity)
	return m
}

// ProformaInvoiceModel is the persistence model for a proforma invoice
type ProformaInvoiceModel struct {
	BaseModel
	OrderID        uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex"`
	ProformaNumber string                    `gorm:"type:varchar(30);not null;uniqueIndex"`
	FileURL        string                    `gorm:"type:varchar(500)"`
	InvoiceData    JSON[billing.InvoiceData] `gorm:"type:jsonb;not null"`
	IssuedAt       time.Time                 `gorm:"not null"`
	ExpiresAt      time.Time                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProformaInvoiceModel) TableName() string {
	return "proforma_invoices"
}

// ToDomain converts the persistence model to a domain ProformaInvoice
func (m *ProformaInvoiceModel) ToDomain() *billing.ProformaInvoice {
	return &billing.ProformaInvoice{
		BaseEntity:     m.BaseModel.entity(),
		OrderID:        m.OrderID,
		ProformaNumber: m.ProformaNumber,
		FileURL:        m.FileURL,
		Data:           m.InvoiceData.Data,
		IssuedAt:       m.IssuedAt,
		ExpiresAt:      m.ExpiresAt,
	}
}

// ProformaInvoiceModelFromDomain creates a persistence model from a domain ProformaInvoice
func ProformaInvoiceModelFromDomain(p *billing.ProformaInvoice) *ProformaInvoiceModel {
	m := &ProformaInvoiceModel{
		OrderID:        p.OrderID,
		ProformaNumber: p.ProformaNumber,
		FileURL:        p.FileURL,
		InvoiceData:    NewJSON(p.Data),
		IssuedAt:       p.IssuedAt,
		ExpiresAt:      p.ExpiresAt,
	}
	m.setEntity(p.BaseEntity)
	return m
}

// CompanySettingsModel is the persistence model for the seller's company details
type CompanySettingsModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Street      string    `gorm:"type:varchar(255)"`
	City        string    `gorm:"type:varchar(100)"`
	PostalCode  string    `gorm:"type:varchar(20)"`
	Country     string    `gorm:"type:varchar(100)"`
	CountryCode string    `gorm:"type:varchar(2)"`
	CountryName string    `gorm:"type:varchar(100)"`
	ICO         string    `gorm:"column:ico;type:varchar(20)"`
	DIC         string    `gorm:"column:dic;type:varchar(20)"`
	Phone       string    `gorm:"type:varchar(50)"`
	Email       string    `gorm:"type:varchar(255)"`
	Website     string    `gorm:"type:varchar(255)"`
	BankAccount string    `gorm:"type:varchar(50)"`
	IBAN        string    `gorm:"column:iban;type:varchar(50)"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CompanySettingsModel) TableName() string {
	return "company_settings"
}

// ToDomain converts the persistence model to domain CompanySettings
func (m *CompanySettingsModel) ToDomain() *billing.CompanySettings {
	return &billing.CompanySettings{
		ID:          m.ID,
		Name:        m.Name,
		Street:      m.Street,
		City:        m.City,
		PostalCode:  m.PostalCode,
		Country:     m.Country,
		CountryCode: m.CountryCode,
		CountryName: m.CountryName,
		ICO:         m.ICO,
		DIC:         m.DIC,
		Phone:       m.Phone,
		Email:       m.Email,
		Website:     m.Website,
		BankAccount: m.BankAccount,
		IBAN:        m.IBAN,
		UpdatedAt:   m.UpdatedAt,
	}
}

// CompanySettingsModelFromDomain creates a persistence model from domain CompanySettings
func CompanySettingsModelFromDomain(s *billing.CompanySettings) *CompanySettingsModel {
	return &CompanySettingsModel{
		ID:          s.ID,
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
