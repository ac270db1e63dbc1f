package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
)

// Assessor runs the assessment pipeline for a transaction.
type Assessor interface {
	Process(ctx context.Context, tx *domain.Transaction) (*domain.RiskAssessment, error)
}

// AssessmentReader loads completed assessments.
type AssessmentReader interface {
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*domain.RiskAssessment, error)
}

// Handler serves the synchronous assessment API.
type Handler struct {
	assessor Assessor
	reader   AssessmentReader
	log      *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(assessor Assessor, reader AssessmentReader, log *logger.Logger) *Handler {
	return &Handler{
		assessor: assessor,
		reader:   reader,
		log:      log.Named("api"),
	}
}

// Register mounts the API routes.
func (h *Handler) Register(e *echo.Echo) {
	v1 := e.Group("/api/v1")
	v1.POST("/assessments", h.AssessTransaction)
	v1.GET("/assessments/:transaction_id", h.GetAssessment)

	e.GET("/health", h.Health)
}

// errorResponse is the structured error payload every failure maps to.
type errorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   []string  `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newErrorResponse(code, message string, details ...string) errorResponse {
	return errorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// AssessTransaction scores a transaction synchronously and returns the
// completed assessment.
func (h *Handler) AssessTransaction(c echo.Context) error {
	var tx domain.Transaction
	if err := c.Bind(&tx); err != nil {
		return c.JSON(http.StatusBadRequest,
			newErrorResponse("INVALID_REQUEST", "request body is not a valid transaction"))
	}

	assessment, err := h.assessor.Process(c.Request().Context(), &tx)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusCreated, assessment)
}

// GetAssessment returns the most recent completed assessment for a
// transaction.
func (h *Handler) GetAssessment(c echo.Context) error {
	transactionID, err := uuid.Parse(c.Param("transaction_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest,
			newErrorResponse("INVALID_REQUEST", "transaction id must be a UUID"))
	}

	assessment, err := h.reader.GetByTransactionID(c.Request().Context(), transactionID)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, assessment)
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mapError translates the error taxonomy into HTTP responses. Unexpected
// errors are logged with full context and answered opaquely.
func (h *Handler) mapError(c echo.Context, err error) error {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest,
			newErrorResponse("VALIDATION_FAILED", "transaction failed validation",
				validationErr.Field+": "+validationErr.Reason))
	}

	var invariantErr *domain.InvariantViolation
	if errors.As(err, &invariantErr) {
		return c.JSON(http.StatusUnprocessableEntity,
			newErrorResponse("INVARIANT_VIOLATION", "assessment completion rejected", invariantErr.Rule))
	}

	if errors.Is(err, domain.ErrAssessmentNotFound) {
		return c.JSON(http.StatusNotFound,
			newErrorResponse("NOT_FOUND", "no assessment exists for this transaction"))
	}

	var pubErr *domain.EventPublishingError
	if errors.As(err, &pubErr) {
		// The assessment itself succeeded; only the alert confirmation
		// failed.
		return c.JSON(http.StatusBadGateway,
			newErrorResponse("ALERT_DELIVERY_FAILED", "assessment completed but the alert could not be confirmed"))
	}

	h.log.Error("assessment request failed", logger.ErrorField(err))
	return c.JSON(http.StatusInternalServerError,
		newErrorResponse("INTERNAL_ERROR", "an internal error occurred"))
}
