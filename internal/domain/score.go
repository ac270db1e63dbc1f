package domain

// RiskLevel buckets a 0-100 risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// Decision is the binding outcome of an assessment.
type Decision string

const (
	DecisionAllow     Decision = "ALLOW"
	DecisionChallenge Decision = "CHALLENGE"
	DecisionReview    Decision = "REVIEW"
	DecisionBlock     Decision = "BLOCK"
)

// RiskLevelForScore maps a score to its level. Boundary values resolve to
// the lower band: 40 is LOW, 70 is MEDIUM, 90 is HIGH.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score <= 40:
		return RiskLevelLow
	case score <= 70:
		return RiskLevelMedium
	case score <= 90:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// IsHighRisk returns true for the two levels that emit a HighRiskDetected
// event.
func (l RiskLevel) IsHighRisk() bool {
	return l == RiskLevelHigh || l == RiskLevelCritical
}

// ClampScore bounds a raw composite score into [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
