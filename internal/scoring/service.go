package scoring

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
)

// Service orchestrates one transaction's risk scoring: a concurrent
// fan-out to the ML predictor, velocity counter and geographic validator,
// then rule evaluation over the gathered signals, then the composite
// score.
type Service struct {
	predictor MLPredictor
	rules     RuleEvaluator
	velocity  VelocityReader
	geo       GeoValidator

	cfg    config.ScoringConfig
	log    *logger.Logger
	tracer trace.Tracer
}

// NewService creates a risk scoring service.
func NewService(
	predictor MLPredictor,
	rules RuleEvaluator,
	velocity VelocityReader,
	geo GeoValidator,
	cfg config.ScoringConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		predictor: predictor,
		rules:     rules,
		velocity:  velocity,
		geo:       geo,
		cfg:       cfg,
		log:       log.Named("risk_scoring"),
		tracer:    otel.Tracer("scoring"),
	}
}

// Assess gathers all signals for a transaction and returns an uncompleted
// assessment carrying the provisional composite score. Completion is the
// caller's job, after the decision engine has rendered a decision.
//
// There is no partial-result path: a failure in any signal source aborts
// the assessment and propagates. The ML predictor and account lookups
// degrade internally behind their resilient clients, so an error reaching
// this level means no usable fallback existed.
func (s *Service) Assess(ctx context.Context, tx *domain.Transaction) (*domain.RiskAssessment, error) {
	ctx, span := s.tracer.Start(ctx, "scoring.assess",
		trace.WithAttributes(attribute.String("transaction.id", tx.ID.String())),
	)
	defer span.End()

	started := time.Now()
	s.log.AssessmentStarted(tx.ID.String(), tx.AccountID.String())

	var (
		prediction domain.MLPrediction
		metrics    domain.VelocityMetrics
		geography  domain.GeographicContext
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prediction, err = s.predictor.Predict(gctx, tx)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = s.velocity.Fetch(gctx, tx)
		return err
	})
	g.Go(func() error {
		var err error
		geography, err = s.geo.Validate(gctx, tx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	triggers, err := s.rules.Evaluate(ctx, tx, metrics, geography)
	if err != nil {
		return nil, err
	}

	assessment := domain.NewRiskAssessment(tx.ID)
	assessment.AttachPrediction(prediction)

	ruleAggregate := 0
	for _, trigger := range triggers {
		impact := trigger.Severity.Weight()
		ruleAggregate += impact
		assessment.AddRuleEvaluation(domain.RuleEvaluation{
			RuleID:      trigger.RuleID,
			Name:        trigger.Name,
			Severity:    trigger.Severity,
			Triggered:   true,
			ScoreImpact: impact,
			Description: trigger.Description,
		})
	}

	assessment.Score = s.compositeScore(prediction.FraudProbability, ruleAggregate)

	elapsed := time.Since(started)
	if s.cfg.MaxAssessmentLatency > 0 && elapsed > s.cfg.MaxAssessmentLatency {
		s.log.LatencyWarning("scoring.assess", elapsed.Milliseconds(), s.cfg.MaxAssessmentLatency.Milliseconds())
	}

	span.SetAttributes(
		attribute.Int("assessment.score", assessment.Score),
		attribute.Int("assessment.rule_count", len(triggers)),
		attribute.Bool("assessment.ml_unavailable", prediction.IsUnavailable()),
	)

	return assessment, nil
}

// compositeScore blends the ML probability with the rule aggregate using
// the configured weights. Weights need not sum to one; the clamp absorbs
// any overshoot.
func (s *Service) compositeScore(probability float64, ruleAggregate int) int {
	raw := probability*100*s.cfg.MLWeight + float64(ruleAggregate)*s.cfg.RuleWeight
	return domain.ClampScore(int(math.Round(raw)))
}
