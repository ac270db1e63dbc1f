package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the closed set of events a risk assessment can emit.
// The union is sealed: only the types in this file implement it, and the
// publisher routes them by exhaustive type switch.
type DomainEvent interface {
	EventID() uuid.UUID
	OccurredAt() time.Time
	isDomainEvent()
}

// RiskAssessmentCompleted is emitted exactly once when an assessment
// completes successfully.
type RiskAssessmentCompleted struct {
	ID            uuid.UUID `json:"event_id"`
	AssessmentID  uuid.UUID `json:"assessment_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Score         int       `json:"score"`
	Level         RiskLevel `json:"level"`
	Decision      Decision  `json:"decision"`
	At            time.Time `json:"occurred_at"`
}

func (e RiskAssessmentCompleted) EventID() uuid.UUID    { return e.ID }
func (e RiskAssessmentCompleted) OccurredAt() time.Time { return e.At }
func (e RiskAssessmentCompleted) isDomainEvent()        {}

// HighRiskDetected is emitted in addition to RiskAssessmentCompleted when
// the completed level is HIGH or CRITICAL. It is the designated critical
// event subtype: publication blocks for a bounded confirmation.
type HighRiskDetected struct {
	ID            uuid.UUID `json:"event_id"`
	AssessmentID  uuid.UUID `json:"assessment_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Level         RiskLevel `json:"level"`
	At            time.Time `json:"occurred_at"`
}

func (e HighRiskDetected) EventID() uuid.UUID    { return e.ID }
func (e HighRiskDetected) OccurredAt() time.Time { return e.At }
func (e HighRiskDetected) isDomainEvent()        {}
