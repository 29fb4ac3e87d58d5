package billing

import (
	"time"

	"github.com/google/uuid"
)

// CompanySettings holds the seller identity printed on invoices. There is a
// single row, created with defaults on first read.
type CompanySettings struct {
	ID          uuid.UUID
	Name        string
	Street      string
	City        string
	PostalCode  string
	Country     string
	CountryCode string
	CountryName string
	ICO         string
	DIC         string
	Phone       string
	Email       string
	Website     string
	BankAccount string
	IBAN        string
	UpdatedAt   time.Time
}

// DefaultCompanySettings returns the settings used until an admin edits them
func DefaultCompanySettings() *CompanySettings {
	return &CompanySettings{
		ID:          uuid.New(),
		Name:        "FlipFlop.cz",
		Street:      "",
		City:        "Praha",
		PostalCode:  "",
		Country:     "Czech Republic",
		CountryCode: "CZ",
		CountryName: "Česká republika",
		ICO:         "12345678",
		DIC:         "CZ12345678",
		Phone:       "+420 123 456 789",
		Email:       "info@flipflop.cz",
		Website:     "https://flipflop.cz",
		UpdatedAt:   time.Now(),
	}
}
