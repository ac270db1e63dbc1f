package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger(level zap.AtomicLevel) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{Logger: zap.New(core), serviceName: "test"}, logs
}

func TestHighRiskDetectedLogsAtWarn(t *testing.T) {
	l, logs := observedLogger(zap.NewAtomicLevelAt(zap.WarnLevel))

	l.HighRiskDetected("assessment-1", "tx-1", "CRITICAL")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "high risk detected", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "assessment-1", fields["assessment_id"])
	assert.Equal(t, "tx-1", fields["transaction_id"])
	assert.Equal(t, "CRITICAL", fields["level"])
}

func TestAssessmentCompletedCarriesDecisionAndScore(t *testing.T) {
	l, logs := observedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))

	l.AssessmentCompleted("tx-1", "BLOCK", 95, 42)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "BLOCK", fields["decision"])
	assert.Equal(t, int64(95), fields["risk_score"])
	assert.Equal(t, int64(42), fields["duration_ms"])
}

func TestWithContextAttachesRequestValues(t *testing.T) {
	l, logs := observedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-7")
	ctx = context.WithValue(ctx, AccountIDKey, "acct-9")
	l.WithContext(ctx).Info("handled")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "acct-9", fields["account_id"])
}
