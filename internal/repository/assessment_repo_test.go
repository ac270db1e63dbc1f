package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-risk-service/internal/domain"
)

type fakeDB struct {
	execSQL  string
	execArgs []any
	row      *fakeRow
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		case *[]byte:
			if v != nil {
				*d = v.([]byte)
			}
		case *time.Time:
			*d = v.(time.Time)
		}
	}
	return nil
}

func completedAssessment(t *testing.T) *domain.RiskAssessment {
	t.Helper()
	a := domain.NewRiskAssessment(uuid.New())
	a.Score = 75
	a.AddRuleEvaluation(domain.RuleEvaluation{
		RuleID: "GEO-001", Name: "impossible travel",
		Severity: domain.SeverityHigh, Triggered: true, ScoreImpact: 40,
	})
	require.NoError(t, a.Complete(75, domain.DecisionReview))
	return a
}

func TestSaveRejectsIncompleteAssessment(t *testing.T) {
	repo := NewAssessmentRepository(&fakeDB{})
	err := repo.Save(context.Background(), domain.NewRiskAssessment(uuid.New()))
	assert.Error(t, err)
}

func TestSaveWritesCompletedAssessment(t *testing.T) {
	db := &fakeDB{}
	repo := NewAssessmentRepository(db)
	a := completedAssessment(t)

	require.NoError(t, repo.Save(context.Background(), a))
	require.Len(t, db.execArgs, 9)
	assert.Equal(t, a.ID, db.execArgs[0])
	assert.Equal(t, "REVIEW", db.execArgs[4])

	var evaluations []domain.RuleEvaluation
	require.NoError(t, json.Unmarshal(db.execArgs[5].([]byte), &evaluations))
	require.Len(t, evaluations, 1)
	assert.Equal(t, "GEO-001", evaluations[0].RuleID)
}

func TestGetByTransactionIDRestoresAssessment(t *testing.T) {
	id := uuid.New()
	txID := uuid.New()
	evaluations, _ := json.Marshal([]domain.RuleEvaluation{{RuleID: "VEL-003", Triggered: true}})
	prediction, _ := json.Marshal(domain.MLPrediction{ModelID: "m1", FraudProbability: 0.8})
	started := time.Now().Add(-time.Second)
	completed := time.Now()

	db := &fakeDB{row: &fakeRow{values: []any{
		id, txID, 80, "REVIEW", evaluations, prediction, started, completed,
	}}}
	repo := NewAssessmentRepository(db)

	a, err := repo.GetByTransactionID(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, 80, a.Score)
	assert.Equal(t, domain.RiskLevelHigh, a.Level, "level re-derived from score")
	assert.Equal(t, domain.DecisionReview, a.Decision)
	assert.True(t, a.Completed())
	require.NotNil(t, a.MLPrediction)
	assert.Equal(t, "m1", a.MLPrediction.ModelID)
	require.Len(t, a.RuleEvaluations, 1)
	assert.Empty(t, a.DrainEvents(), "restored assessments republish nothing")
}

func TestGetByTransactionIDMissingRowMapsToNotFound(t *testing.T) {
	db := &fakeDB{row: &fakeRow{err: pgx.ErrNoRows}}
	repo := NewAssessmentRepository(db)

	_, err := repo.GetByTransactionID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAssessmentNotFound)
}
