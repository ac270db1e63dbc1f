package domain

// RuleSeverity classifies how strongly a triggered rule contributes to
// the composite score.
type RuleSeverity string

const (
	SeverityLow      RuleSeverity = "LOW"
	SeverityMedium   RuleSeverity = "MEDIUM"
	SeverityHigh     RuleSeverity = "HIGH"
	SeverityCritical RuleSeverity = "CRITICAL"
)

// Fixed severity weights summed into the rule aggregate.
var severityWeights = map[RuleSeverity]int{
	SeverityLow:      10,
	SeverityMedium:   25,
	SeverityHigh:     40,
	SeverityCritical: 60,
}

// Weight returns the score contribution of a severity. Unknown severities
// contribute nothing.
func (s RuleSeverity) Weight() int {
	return severityWeights[s]
}

// RuleTrigger is one rule the external rule engine reported as fired.
type RuleTrigger struct {
	RuleID      string       `json:"rule_id"`
	Name        string       `json:"name"`
	Severity    RuleSeverity `json:"severity"`
	Description string       `json:"description,omitempty"`
}

// RuleEvaluation records a triggered rule on the assessment, with the
// score impact actually applied.
type RuleEvaluation struct {
	RuleID      string       `json:"rule_id"`
	Name        string       `json:"name"`
	Severity    RuleSeverity `json:"severity"`
	Triggered   bool         `json:"triggered"`
	ScoreImpact int          `json:"score_impact"`
	Description string       `json:"description,omitempty"`
}
