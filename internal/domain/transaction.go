package domain

import (
	"time"

	"github.com/google/uuid"
)

// Merchant identifies the counterparty merchant of a transaction.
type Merchant struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
}

// Transaction is the unit of work entering the scoring pipeline. It is
// immutable once constructed; scoring never writes back into it.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Amount    Money     `json:"amount"`

	Type    string `json:"type"`    // TRANSFER, DEPOSIT, WITHDRAWAL, PAYMENT
	Channel string `json:"channel"` // MOBILE, WEB, POS, API

	Merchant *Merchant `json:"merchant,omitempty"`
	Location *Location `json:"location,omitempty"`
	DeviceID string    `json:"device_id,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Validate rejects transactions that must not enter the scoring core.
func (t *Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "required")
	}
	if t.AccountID == uuid.Nil {
		return NewValidationError("account_id", "required")
	}
	if t.Amount.Currency() == "" {
		return NewValidationError("amount", "required")
	}
	if t.Timestamp.IsZero() {
		return NewValidationError("timestamp", "required")
	}
	return nil
}

// HasLocation returns true if the transaction carries a geographic
// observation usable by the geographic validator.
func (t *Transaction) HasLocation() bool {
	return t.Location != nil
}

// TransactionReceivedEvent is the broker envelope consumed from the
// transaction topic.
type TransactionReceivedEvent struct {
	EventID     uuid.UUID    `json:"event_id"`
	EventType   string       `json:"event_type"`
	Timestamp   time.Time    `json:"timestamp"`
	Transaction *Transaction `json:"payload"`
}
