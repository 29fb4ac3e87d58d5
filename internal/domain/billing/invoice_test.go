package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProformaInvoice(t *testing.T) {
	p, err := NewProformaInvoice(uuid.New(), "PRO-2025-000001", InvoiceData{OrderNumber: "ORD-2025-000001"})
	require.NoError(t, err)

	assert.Equal(t, 14*24*time.Hour, p.ExpiresAt.Sub(p.IssuedAt))
	assert.Equal(t, "PRO-2025-000001", p.Data.Number)
	require.NotNil(t, p.Data.DueAt)
	assert.False(t, p.IsExpired(time.Now()))
	assert.True(t, p.IsExpired(time.Now().Add(15*24*time.Hour)))

	_, err = NewProformaInvoice(uuid.New(), "", InvoiceData{})
	assert.Error(t, err)
}

func TestNewInvoice(t *testing.T) {
	paid := time.Now().Add(-time.Minute)
	inv, err := NewInvoice(uuid.New(), "INV-2025-000007", InvoiceData{}, paid)
	require.NoError(t, err)
	require.NotNil(t, inv.PaidAt)
	assert.Equal(t, paid, *inv.PaidAt)
	assert.Equal(t, "INV-2025-000007", inv.Data.Number)
}

func TestDefaultCompanySettings(t *testing.T) {
	s := DefaultCompanySettings()
	assert.Equal(t, "FlipFlop.cz", s.Name)
	assert.Equal(t, "Czech Republic", s.Country)
	assert.Equal(t, "Česká republika", s.CountryName)
	assert.Equal(t, "12345678", s.ICO)
	assert.Equal(t, "CZ12345678", s.DIC)
	assert.Equal(t, "+420 123 456 789", s.Phone)
	assert.Equal(t, "info@flipflop.cz", s.Email)
	assert.Equal(t, "https://flipflop.cz", s.Website)
}
