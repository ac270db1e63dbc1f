package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLevelLow},
		{25, RiskLevelLow},
		{40, RiskLevelLow}, // boundary resolves to lower band
		{41, RiskLevelMedium},
		{70, RiskLevelMedium},
		{71, RiskLevelHigh},
		{90, RiskLevelHigh},
		{91, RiskLevelCritical},
		{100, RiskLevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestRiskLevelIsHighRisk(t *testing.T) {
	assert.False(t, RiskLevelLow.IsHighRisk())
	assert.False(t, RiskLevelMedium.IsHighRisk())
	assert.True(t, RiskLevelHigh.IsHighRisk())
	assert.True(t, RiskLevelCritical.IsHighRisk())
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-50))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 55, ClampScore(55))
	assert.Equal(t, 100, ClampScore(100))
	assert.Equal(t, 100, ClampScore(2500))
}
