package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyCZK(decimal.RequireFromString("199.90"))
	b := NewMoneyCZK(decimal.RequireFromString("0.10"))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "200.00 CZK", sum.String())

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount().Equal(decimal.RequireFromString("199.80")))

	assert.Equal(t, "599.70 CZK", a.MultiplyByInt(3).String())
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	czk := NewMoneyCZK(decimal.NewFromInt(10))
	eur, err := NewMoney(decimal.NewFromInt(10), EUR)
	require.NoError(t, err)

	_, err = czk.Add(eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = czk.GreaterThan(eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_JSON(t *testing.T) {
	m := NewMoneyCZK(decimal.RequireFromString("12.5"))
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.50","currency":"CZK"}`, string(data))

	var back Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"3.20"}`), &back))
	assert.Equal(t, CZK, back.Currency())
	assert.True(t, back.Equals(NewMoneyCZK(decimal.RequireFromString("3.2"))))
}

func TestNewMoney_EmptyCurrency(t *testing.T) {
	_, err := NewMoney(decimal.Zero, "")
	assert.Error(t, err)
}
