package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromFloat(125.50), "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency())
	assert.Equal(t, 125.50, m.Float64())
}

func TestNewMoneyRejectsNegativeAmount(t *testing.T) {
	_, err := NewMoney(decimal.NewFromFloat(-1), "USD")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)
}

func TestNewMoneyRejectsBadCurrency(t *testing.T) {
	for _, currency := range []string{"", "US", "DOLLARS"} {
		_, err := NewMoney(decimal.NewFromInt(1), currency)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, "currency %q", currency)
	}
}

func TestNewMoneyFromStringRejectsGarbage(t *testing.T) {
	_, err := NewMoneyFromString("twelve", "USD")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m, err := NewMoneyFromString("99.99", "EUR")
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"99.99","currency":"EUR"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "EUR", decoded.Currency())
	assert.True(t, decoded.Amount().Equal(m.Amount()))
}

func TestMoneyUnmarshalValidates(t *testing.T) {
	var m Money
	err := json.Unmarshal([]byte(`{"amount":"-5","currency":"USD"}`), &m)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
