package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is a non-negative decimal amount paired with an ISO-4217 currency
// code. Construction through NewMoney is the only way to obtain a valid
// value; a zero Money is valid and represents no amount.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney creates a Money value, rejecting negative amounts and malformed
// currency codes with a ValidationError.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, NewValidationError("amount", "must not be negative")
	}
	if len(currency) != 3 {
		return Money{}, NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses a decimal string into a Money value.
func NewMoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, NewValidationError("amount", "not a valid decimal")
	}
	return NewMoney(d, currency)
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the ISO-4217 currency code.
func (m Money) Currency() string {
	return m.currency
}

// Float64 returns the amount as a float64 for counters and metrics.
// Precision loss is acceptable there; never use it for arithmetic that
// flows back into a Money.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// IsZero returns true for the zero amount.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes Money as {"amount":"12.34","currency":"USD"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON decodes and validates a Money value.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
