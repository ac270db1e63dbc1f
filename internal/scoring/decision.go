package scoring

import (
	"fmt"

	"github.com/banking/fraud-risk-service/internal/domain"
)

// decisionTable is the fixed, total mapping from risk level to decision.
// The level set is closed, so the table is a constant rather than a
// pluggable registry.
var decisionTable = map[domain.RiskLevel]domain.Decision{
	domain.RiskLevelLow:      domain.DecisionAllow,
	domain.RiskLevelMedium:   domain.DecisionChallenge,
	domain.RiskLevelHigh:     domain.DecisionReview,
	domain.RiskLevelCritical: domain.DecisionBlock,
}

// DecisionEngine renders the binding decision for an assessment's score.
type DecisionEngine struct{}

// NewDecisionEngine creates a decision engine.
func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{}
}

// Decide maps the assessment's provisional score to a decision. A level
// missing from the table is a programming error, not a runtime condition,
// and panics.
func (e *DecisionEngine) Decide(assessment *domain.RiskAssessment) domain.Decision {
	level := domain.RiskLevelForScore(assessment.Score)
	decision, ok := decisionTable[level]
	if !ok {
		panic(fmt.Sprintf("no decision strategy registered for risk level %q", level))
	}
	return decision
}
