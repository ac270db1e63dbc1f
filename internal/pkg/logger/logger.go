package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with fraud-assessment specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	AccountIDKey ContextKey = "account_id"
	TraceIDKey   ContextKey = "trace_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a no-op logger for tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "test"}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if accountID, ok := ctx.Value(AccountIDKey).(string); ok && accountID != "" {
		fields = append(fields, zap.String("account_id", accountID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithTransaction returns a logger with transaction context
func (l *Logger) WithTransaction(txID, accountID string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("transaction_id", txID),
			zap.String("account_id", accountID),
		),
		serviceName: l.serviceName,
	}
}

// WithAssessment returns a logger with assessment context
func (l *Logger) WithAssessment(assessmentID, txID string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("assessment_id", assessmentID),
			zap.String("transaction_id", txID),
		),
		serviceName: l.serviceName,
	}
}

// AssessmentStarted logs the start of a risk assessment
func (l *Logger) AssessmentStarted(txID, accountID string) {
	l.Info("assessment started",
		zap.String("transaction_id", txID),
		zap.String("account_id", accountID),
	)
}

// AssessmentCompleted logs the completion of a risk assessment
func (l *Logger) AssessmentCompleted(txID string, decision string, riskScore int, durationMs int64) {
	l.Info("assessment completed",
		zap.String("transaction_id", txID),
		zap.String("decision", decision),
		zap.Int("risk_score", riskScore),
		zap.Int64("duration_ms", durationMs),
	)
}

// ImpossibleTravelDetected logs an impossible-travel flag
func (l *Logger) ImpossibleTravelDetected(accountID string, distanceKm, speedKmh float64) {
	l.Warn("impossible travel detected",
		zap.String("account_id", accountID),
		zap.Float64("distance_km", distanceKm),
		zap.Float64("required_speed_kmh", speedKmh),
	)
}

// HighRiskDetected logs a high-risk assessment outcome
func (l *Logger) HighRiskDetected(assessmentID, txID string, level string) {
	l.Warn("high risk detected",
		zap.String("assessment_id", assessmentID),
		zap.String("transaction_id", txID),
		zap.String("level", level),
	)
}

// PublishFailed logs a domain event publish failure
func (l *Logger) PublishFailed(topic, eventID string, err error) {
	l.Error("event publish failed",
		zap.String("topic", topic),
		zap.String("event_id", eventID),
		zap.Error(err),
	)
}

// FallbackServed logs that a resilient client served a fallback value
func (l *Logger) FallbackServed(client string, err error) {
	l.Warn("fallback served",
		zap.String("client", client),
		zap.Error(err),
	)
}

// DuplicateSkipped logs a transaction skipped by the idempotency guard
func (l *Logger) DuplicateSkipped(txID string) {
	l.Info("duplicate transaction skipped",
		zap.String("transaction_id", txID),
	)
}

// LatencyWarning logs when an operation exceeds its latency budget
func (l *Logger) LatencyWarning(operation string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("operation", operation),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// BoolField creates a bool field
func BoolField(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}
