package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookup misses.
var (
	ErrAccountNotFound    = errors.New("account profile not found")
	ErrAssessmentNotFound = errors.New("risk assessment not found")
)

// ValidationError indicates malformed input rejected at the boundary,
// before it enters the scoring core.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvariantViolation indicates the risk level and decision are misaligned
// at assessment completion. It is fatal to that assessment attempt and is
// never retried.
type InvariantViolation struct {
	AssessmentID string
	Rule         string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on assessment %s: %s", e.AssessmentID, e.Rule)
}

// ExternalServiceError wraps a failure from a downstream dependency
// (ML predictor, rule engine, account profile service).
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError wraps err with the failing service name
func NewExternalServiceError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}

// EventPublishingError indicates a critical domain event could not be
// confirmed within its bounded wait. Non-critical publish failures are
// logged only and never surface as this type.
type EventPublishingError struct {
	Topic string
	Err   error
}

func (e *EventPublishingError) Error() string {
	return fmt.Sprintf("failed to publish event to %s: %v", e.Topic, e.Err)
}

func (e *EventPublishingError) Unwrap() error {
	return e.Err
}
