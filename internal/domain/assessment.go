package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RiskAssessment is the aggregate root for one transaction's scoring run.
// It accumulates evidence during the fan-out, completes exactly once with
// a score and decision, and queues domain events until the publisher
// drains them. It is built, completed and drained by a single worker and
// must not be shared across goroutines.
type RiskAssessment struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`

	// Provisional during scoring, final after Complete.
	Score    int       `json:"score"`
	Level    RiskLevel `json:"level,omitempty"`
	Decision Decision  `json:"decision,omitempty"`

	RuleEvaluations []RuleEvaluation `json:"rule_evaluations"`
	MLPrediction    *MLPrediction    `json:"ml_prediction,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	completed     bool
	pendingEvents []DomainEvent
}

// NewRiskAssessment creates an empty assessment for a transaction.
func NewRiskAssessment(transactionID uuid.UUID) *RiskAssessment {
	return &RiskAssessment{
		ID:              uuid.New(),
		TransactionID:   transactionID,
		RuleEvaluations: make([]RuleEvaluation, 0),
		StartedAt:       time.Now().UTC(),
	}
}

// AttachPrediction records the ML prediction used for scoring.
func (a *RiskAssessment) AttachPrediction(p MLPrediction) {
	a.MLPrediction = &p
}

// AddRuleEvaluation records a triggered rule and its applied score impact.
func (a *RiskAssessment) AddRuleEvaluation(e RuleEvaluation) {
	a.RuleEvaluations = append(a.RuleEvaluations, e)
}

// Complete finalizes the assessment with a score and decision, enforcing
// the alignment invariants: a CRITICAL level must decide BLOCK, and a LOW
// level must not. On violation the aggregate is left untouched and
// incomplete. Completing twice is a programming error.
func (a *RiskAssessment) Complete(score int, decision Decision) error {
	if a.completed {
		return fmt.Errorf("assessment %s already completed", a.ID)
	}

	level := RiskLevelForScore(score)
	if level == RiskLevelCritical && decision != DecisionBlock {
		return &InvariantViolation{
			AssessmentID: a.ID.String(),
			Rule:         fmt.Sprintf("CRITICAL risk requires BLOCK, got %s", decision),
		}
	}
	if level == RiskLevelLow && decision == DecisionBlock {
		return &InvariantViolation{
			AssessmentID: a.ID.String(),
			Rule:         "LOW risk must not BLOCK",
		}
	}

	now := time.Now().UTC()
	a.Score = score
	a.Level = level
	a.Decision = decision
	a.CompletedAt = &now
	a.completed = true

	a.pendingEvents = append(a.pendingEvents, RiskAssessmentCompleted{
		ID:            uuid.New(),
		AssessmentID:  a.ID,
		TransactionID: a.TransactionID,
		Score:         score,
		Level:         level,
		Decision:      decision,
		At:            now,
	})
	if level.IsHighRisk() {
		a.pendingEvents = append(a.pendingEvents, HighRiskDetected{
			ID:            uuid.New(),
			AssessmentID:  a.ID,
			TransactionID: a.TransactionID,
			Level:         level,
			At:            now,
		})
	}

	return nil
}

// Completed reports whether Complete has succeeded.
func (a *RiskAssessment) Completed() bool {
	return a.completed
}

// DrainEvents returns the queued domain events and empties the queue in
// one step, transferring ownership to the caller.
func (a *RiskAssessment) DrainEvents() []DomainEvent {
	events := a.pendingEvents
	a.pendingEvents = nil
	return events
}

// RestoreCompleted rebuilds a completed assessment from persistence. The
// event queue stays empty; events from a past completion were already
// published.
func RestoreCompleted(
	id, transactionID uuid.UUID,
	score int,
	decision Decision,
	evaluations []RuleEvaluation,
	prediction *MLPrediction,
	startedAt, completedAt time.Time,
) *RiskAssessment {
	return &RiskAssessment{
		ID:              id,
		TransactionID:   transactionID,
		Score:           score,
		Level:           RiskLevelForScore(score),
		Decision:        decision,
		RuleEvaluations: evaluations,
		MLPrediction:    prediction,
		StartedAt:       startedAt,
		CompletedAt:     &completedAt,
		completed:       true,
	}
}
