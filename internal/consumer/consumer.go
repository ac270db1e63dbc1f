package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
	"github.com/banking/fraud-risk-service/internal/pkg/metrics"
)

// Guard deduplicates redelivered transactions.
type Guard interface {
	HasProcessed(ctx context.Context, transactionID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, transactionID uuid.UUID) (bool, error)
}

// Processor runs the assessment pipeline for one transaction.
type Processor interface {
	Process(ctx context.Context, tx *domain.Transaction) (*domain.RiskAssessment, error)
}

// Consumer reads transaction events from the broker and feeds them into
// the assessment pipeline. Offsets are marked only after a transaction
// has been fully scored and persisted, so delivery is at-least-once and
// the idempotency guard absorbs the redeliveries.
type Consumer struct {
	group    sarama.ConsumerGroup
	topic    string
	guard    Guard
	pipeline Processor

	metrics *metrics.Metrics
	log     *logger.Logger
}

// New creates a transaction stream consumer.
func New(group sarama.ConsumerGroup, cfg config.KafkaConfig, guard Guard, pipeline Processor, m *metrics.Metrics, log *logger.Logger) *Consumer {
	return &Consumer{
		group:    group,
		topic:    cfg.TransactionTopic,
		guard:    guard,
		pipeline: pipeline,
		metrics:  m,
		log:      log.Named("transaction_consumer"),
	}
}

// Run consumes until the context is cancelled. Rebalances re-enter the
// consume loop; any other error is returned.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close shuts the consumer group down.
func (c *Consumer) Close() error {
	return c.group.Close()
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes one partition's messages in order. Per-account
// ordering holds because upstream partitions by account id.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.handle(session.Context(), msg); err != nil {
				return err
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle scores one consumed transaction. A nil return marks the offset;
// transient failures return an error so the message is redelivered.
func (c *Consumer) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event domain.TransactionReceivedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Poison messages are logged and skipped; redelivery cannot fix
		// a malformed payload.
		c.log.Error("malformed transaction event",
			logger.StringField("topic", msg.Topic),
			logger.IntField("partition", int(msg.Partition)),
			logger.ErrorField(err),
		)
		return nil
	}
	tx := event.Transaction
	if tx == nil || tx.ID == uuid.Nil {
		c.log.Error("transaction event without payload",
			logger.StringField("event_id", event.EventID.String()))
		return nil
	}

	seen, err := c.guard.HasProcessed(ctx, tx.ID)
	if err != nil {
		return err
	}
	if seen {
		c.metrics.RecordDuplicate()
		c.log.DuplicateSkipped(tx.ID.String())
		return nil
	}

	if _, err := c.pipeline.Process(ctx, tx); err != nil {
		var validationErr *domain.ValidationError
		var invariantErr *domain.InvariantViolation
		var publishErr *domain.EventPublishingError
		switch {
		case errors.As(err, &validationErr), errors.As(err, &invariantErr):
			// Deterministic failures: redelivery would fail identically.
			c.log.Error("transaction rejected",
				logger.StringField("transaction_id", tx.ID.String()),
				logger.ErrorField(err),
			)
			return nil
		case errors.As(err, &publishErr):
			// The assessment is decided and persisted; alert delivery
			// is best effort. Redelivering would rerun the whole
			// pipeline and double-increment the velocity counters, so
			// the transaction still counts as processed.
			c.log.Warn("alert confirmation failed",
				logger.StringField("transaction_id", tx.ID.String()),
				logger.ErrorField(err),
			)
		default:
			return err
		}
	}

	if _, err := c.guard.MarkProcessed(ctx, tx.ID); err != nil {
		// The assessment is already persisted; a failed mark only risks
		// one extra dedup miss.
		c.log.Warn("idempotency mark failed",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.ErrorField(err),
		)
	}
	return nil
}

// NewConsumerGroup builds the sarama consumer group for the transaction
// topic.
func NewConsumerGroup(cfg config.KafkaConfig) (sarama.ConsumerGroup, error) {
	sc := sarama.NewConfig()
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Return.Errors = true
	return sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, sc)
}
