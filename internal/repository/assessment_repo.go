package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/banking/fraud-risk-service/internal/domain"
)

// DB is the slice of the pgx pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AssessmentRepository persists completed risk assessments. Rule
// evaluations and the ML prediction are stored as JSONB documents; the
// scalar columns carry everything queried operationally.
type AssessmentRepository struct {
	db DB
}

// NewAssessmentRepository creates an assessment repository.
func NewAssessmentRepository(db DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const insertAssessment = `
INSERT INTO risk_assessments
	(id, transaction_id, score, level, decision, rule_evaluations, ml_prediction, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Save stores a completed assessment. Saving an incomplete one is a
// programming error.
func (r *AssessmentRepository) Save(ctx context.Context, a *domain.RiskAssessment) error {
	if !a.Completed() {
		return fmt.Errorf("assessment %s is not completed", a.ID)
	}

	evaluations, err := json.Marshal(a.RuleEvaluations)
	if err != nil {
		return fmt.Errorf("encode rule evaluations: %w", err)
	}
	var prediction []byte
	if a.MLPrediction != nil {
		prediction, err = json.Marshal(a.MLPrediction)
		if err != nil {
			return fmt.Errorf("encode ml prediction: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, insertAssessment,
		a.ID, a.TransactionID, a.Score, string(a.Level), string(a.Decision),
		evaluations, prediction, a.StartedAt, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment %s: %w", a.ID, err)
	}
	return nil
}

const selectByTransaction = `
SELECT id, transaction_id, score, decision, rule_evaluations, ml_prediction, started_at, completed_at
FROM risk_assessments
WHERE transaction_id = $1
ORDER BY completed_at DESC
LIMIT 1`

// GetByTransactionID loads the most recent completed assessment for a
// transaction.
func (r *AssessmentRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*domain.RiskAssessment, error) {
	var (
		id          uuid.UUID
		txID        uuid.UUID
		score       int
		decision    string
		evaluations []byte
		prediction  []byte
		startedAt   time.Time
		completedAt time.Time
	)

	row := r.db.QueryRow(ctx, selectByTransaction, transactionID)
	err := row.Scan(&id, &txID, &score, &decision, &evaluations, &prediction, &startedAt, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load assessment for transaction %s: %w", transactionID, err)
	}

	var ruleEvaluations []domain.RuleEvaluation
	if len(evaluations) > 0 {
		if err := json.Unmarshal(evaluations, &ruleEvaluations); err != nil {
			return nil, fmt.Errorf("decode rule evaluations: %w", err)
		}
	}
	var mlPrediction *domain.MLPrediction
	if len(prediction) > 0 {
		mlPrediction = &domain.MLPrediction{}
		if err := json.Unmarshal(prediction, mlPrediction); err != nil {
			return nil, fmt.Errorf("decode ml prediction: %w", err)
		}
	}

	return domain.RestoreCompleted(
		id, txID, score, domain.Decision(decision),
		ruleEvaluations, mlPrediction, startedAt, completedAt,
	), nil
}
