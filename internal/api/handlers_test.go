package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
)

type stubAssessor struct {
	assessment *domain.RiskAssessment
	err        error
}

func (s *stubAssessor) Process(context.Context, *domain.Transaction) (*domain.RiskAssessment, error) {
	return s.assessment, s.err
}

type stubReader struct {
	assessment *domain.RiskAssessment
	err        error
}

func (s *stubReader) GetByTransactionID(context.Context, uuid.UUID) (*domain.RiskAssessment, error) {
	return s.assessment, s.err
}

func completedAssessment(t *testing.T) *domain.RiskAssessment {
	t.Helper()
	a := domain.NewRiskAssessment(uuid.New())
	require.NoError(t, a.Complete(10, domain.DecisionAllow))
	a.DrainEvents()
	return a
}

func newContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func transactionBody(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":         uuid.NewString(),
		"account_id": uuid.NewString(),
		"amount":     map[string]string{"amount": "99.90", "currency": "USD"},
		"type":       "PAYMENT",
		"channel":    "WEB",
		"timestamp":  time.Now().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return string(body)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var payload errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestAssessTransactionReturnsCreated(t *testing.T) {
	h := NewHandler(&stubAssessor{assessment: completedAssessment(t)}, &stubReader{}, logger.NewNop())
	c, rec := newContext(t, http.MethodPost, "/api/v1/assessments", transactionBody(t))

	require.NoError(t, h.AssessTransaction(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got domain.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.DecisionAllow, got.Decision)
}

func TestAssessTransactionMapsValidationError(t *testing.T) {
	h := NewHandler(&stubAssessor{err: domain.NewValidationError("amount", "required")}, &stubReader{}, logger.NewNop())
	c, rec := newContext(t, http.MethodPost, "/api/v1/assessments", transactionBody(t))

	require.NoError(t, h.AssessTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", payload.Code)
	require.Len(t, payload.Details, 1)
	assert.Contains(t, payload.Details[0], "amount")
	assert.False(t, payload.Timestamp.IsZero())
}

func TestAssessTransactionMapsInvariantViolation(t *testing.T) {
	h := NewHandler(&stubAssessor{err: &domain.InvariantViolation{
		AssessmentID: uuid.NewString(), Rule: "CRITICAL risk requires BLOCK",
	}}, &stubReader{}, logger.NewNop())
	c, rec := newContext(t, http.MethodPost, "/api/v1/assessments", transactionBody(t))

	require.NoError(t, h.AssessTransaction(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVARIANT_VIOLATION", decodeError(t, rec).Code)
}

func TestAssessTransactionHidesInternalDetail(t *testing.T) {
	h := NewHandler(&stubAssessor{err: errors.New("pgx: connection refused at 10.1.2.3")}, &stubReader{}, logger.NewNop())
	c, rec := newContext(t, http.MethodPost, "/api/v1/assessments", transactionBody(t))

	require.NoError(t, h.AssessTransaction(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	payload := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", payload.Code)
	assert.NotContains(t, rec.Body.String(), "10.1.2.3", "internal detail never leaks")
}

func TestAssessTransactionMapsPublishFailure(t *testing.T) {
	h := NewHandler(&stubAssessor{err: &domain.EventPublishingError{
		Topic: "banking.fraud.alerts", Err: errors.New("broker down"),
	}}, &stubReader{}, logger.NewNop())
	c, rec := newContext(t, http.MethodPost, "/api/v1/assessments", transactionBody(t))

	require.NoError(t, h.AssessTransaction(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "ALERT_DELIVERY_FAILED", decodeError(t, rec).Code)
}

func TestGetAssessmentReturnsAssessment(t *testing.T) {
	assessment := completedAssessment(t)
	h := NewHandler(&stubAssessor{}, &stubReader{assessment: assessment}, logger.NewNop())
	c, rec := newContext(t, http.MethodGet, "/", "")
	c.SetPath("/api/v1/assessments/:transaction_id")
	c.SetParamNames("transaction_id")
	c.SetParamValues(assessment.TransactionID.String())

	require.NoError(t, h.GetAssessment(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetAssessmentRejectsMalformedID(t *testing.T) {
	h := NewHandler(&stubAssessor{}, &stubReader{}, logger.NewNop())
	c, rec := newContext(t, http.MethodGet, "/", "")
	c.SetPath("/api/v1/assessments/:transaction_id")
	c.SetParamNames("transaction_id")
	c.SetParamValues("not-a-uuid")

	require.NoError(t, h.GetAssessment(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAssessmentMapsNotFound(t *testing.T) {
	h := NewHandler(&stubAssessor{}, &stubReader{err: domain.ErrAssessmentNotFound}, logger.NewNop())
	c, rec := newContext(t, http.MethodGet, "/", "")
	c.SetPath("/api/v1/assessments/:transaction_id")
	c.SetParamNames("transaction_id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, h.GetAssessment(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestHealthReportsOK(t *testing.T) {
	h := NewHandler(&stubAssessor{}, &stubReader{}, logger.NewNop())
	c, rec := newContext(t, http.MethodGet, "/health", "")

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
