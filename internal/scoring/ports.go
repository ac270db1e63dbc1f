package scoring

import (
	"context"

	"github.com/banking/fraud-risk-service/internal/domain"
)

// MLPredictor returns a fraud probability for a transaction. The client
// behind it degrades to the unavailable sentinel rather than failing.
type MLPredictor interface {
	Predict(ctx context.Context, tx *domain.Transaction) (domain.MLPrediction, error)
}

// RuleEvaluator is the external rule engine port: a pure call taking the
// transaction plus the gathered signals and returning the rules that
// fired. Failures propagate; there is no safe rule-less default.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, tx *domain.Transaction, velocity domain.VelocityMetrics, geo domain.GeographicContext) ([]domain.RuleTrigger, error)
}

// VelocityReader fetches the account's rolling activity metrics.
type VelocityReader interface {
	Fetch(ctx context.Context, tx *domain.Transaction) (domain.VelocityMetrics, error)
}

// VelocityRecorder records a transaction into the rolling windows.
type VelocityRecorder interface {
	Increment(ctx context.Context, tx *domain.Transaction) error
}

// GeoValidator computes the impossible-travel signal.
type GeoValidator interface {
	Validate(ctx context.Context, tx *domain.Transaction) (domain.GeographicContext, error)
}

// AssessmentStore persists completed assessments.
type AssessmentStore interface {
	Save(ctx context.Context, assessment *domain.RiskAssessment) error
}

// EventPublisher emits drained domain events.
type EventPublisher interface {
	PublishAll(ctx context.Context, events []domain.DomainEvent) error
}
