package scoring

import (
	"context"
	"time"

	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
	"github.com/banking/fraud-risk-service/internal/pkg/metrics"
)

// Pipeline is the shared end-to-end assessment path both entry points
// converge on: the synchronous API and the transaction stream consumer.
// Ordering is fixed: increment velocity first so the metrics include the
// current transaction, then assess, decide, complete, persist, and
// finally drain and publish the aggregate's events.
type Pipeline struct {
	velocity  VelocityRecorder
	service   *Service
	decisions *DecisionEngine
	store     AssessmentStore
	publisher EventPublisher

	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewPipeline wires the assessment pipeline.
func NewPipeline(
	velocity VelocityRecorder,
	service *Service,
	decisions *DecisionEngine,
	store AssessmentStore,
	publisher EventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		velocity:  velocity,
		service:   service,
		decisions: decisions,
		store:     store,
		publisher: publisher,
		metrics:   m,
		log:       log.Named("pipeline"),
	}
}

// Process runs one transaction through the full assessment path and
// returns the completed assessment.
func (p *Pipeline) Process(ctx context.Context, tx *domain.Transaction) (*domain.RiskAssessment, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	log := p.log.WithTransaction(tx.ID.String(), tx.AccountID.String())

	if err := p.velocity.Increment(ctx, tx); err != nil {
		return nil, err
	}

	assessment, err := p.service.Assess(ctx, tx)
	if err != nil {
		return nil, err
	}

	decision := p.decisions.Decide(assessment)
	if err := assessment.Complete(assessment.Score, decision); err != nil {
		return nil, err
	}
	if assessment.Level.IsHighRisk() {
		log.HighRiskDetected(assessment.ID.String(), tx.ID.String(), string(assessment.Level))
	}

	if err := p.store.Save(ctx, assessment); err != nil {
		return nil, err
	}

	events := assessment.DrainEvents()
	if err := p.publisher.PublishAll(ctx, events); err != nil {
		// Only critical events surface publish failures; the assessment
		// itself is already decided and persisted.
		return assessment, err
	}

	elapsed := time.Since(started)
	p.metrics.RecordAssessment(string(assessment.Decision), elapsed)
	log.AssessmentCompleted(tx.ID.String(), string(assessment.Decision), assessment.Score, elapsed.Milliseconds())

	return assessment, nil
}
