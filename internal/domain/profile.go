package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountProfile is the slice of the account service's profile this
// system consumes: identity, a coarse risk tier, and the account's most
// recent observed location for the impossible-travel check.
type AccountProfile struct {
	AccountID         uuid.UUID `json:"account_id"`
	RiskTier          string    `json:"risk_tier,omitempty"`
	LastKnownLocation *Location `json:"last_known_location,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}
