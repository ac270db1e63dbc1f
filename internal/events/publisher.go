package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
	"github.com/banking/fraud-risk-service/internal/pkg/metrics"
)

// SyncProducer is the confirmed-delivery slice of sarama used for
// critical events.
type SyncProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// AsyncProducer is the fire-and-forget slice of sarama used for
// everything else.
type AsyncProducer interface {
	Input() chan<- *sarama.ProducerMessage
	Errors() <-chan *sarama.ProducerError
	Close() error
}

// Publisher routes domain events to their topics. HighRiskDetected is the
// designated critical event kind: it goes through the synchronous
// producer and a failed confirmation surfaces as EventPublishingError.
// All other events are produced asynchronously; their failures are logged
// and counted, never returned.
type Publisher struct {
	sync  SyncProducer
	async AsyncProducer
	cfg   config.KafkaConfig

	metrics *metrics.Metrics
	log     *logger.Logger
	done    chan struct{}
}

// NewPublisher creates a publisher and starts draining the async
// producer's error channel.
func NewPublisher(sync SyncProducer, async AsyncProducer, cfg config.KafkaConfig, m *metrics.Metrics, log *logger.Logger) *Publisher {
	p := &Publisher{
		sync:    sync,
		async:   async,
		cfg:     cfg,
		metrics: m,
		log:     log.Named("event_publisher"),
		done:    make(chan struct{}),
	}
	go p.drainErrors()
	return p
}

// Publish routes a single event. The returned error is non-nil only for
// critical events whose synchronous confirmation failed.
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	topic := p.topicFor(event)

	msg, err := p.message(topic, event)
	if err != nil {
		return &domain.EventPublishingError{Topic: topic, Err: err}
	}

	if isCritical(event) {
		return p.publishSync(ctx, topic, msg, event)
	}

	p.async.Input() <- msg
	return nil
}

// PublishAll routes a drained event batch, stopping at the first critical
// failure.
func (p *Publisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the error drain and releases both producers.
func (p *Publisher) Close() error {
	close(p.done)
	if err := p.async.Close(); err != nil {
		p.log.Error("async producer close failed", logger.ErrorField(err))
	}
	return p.sync.Close()
}

// topicFor routes by event kind. The union of kinds is closed; a new
// event type must be added here before it can be published, otherwise it
// lands on the generic domain-events topic.
func (p *Publisher) topicFor(event domain.DomainEvent) string {
	switch event.(type) {
	case domain.RiskAssessmentCompleted:
		return p.cfg.AssessmentsTopic
	case domain.HighRiskDetected:
		return p.cfg.AlertsTopic
	default:
		return p.cfg.DomainEventsTopic
	}
}

// isCritical marks the events that require confirmed delivery.
func isCritical(event domain.DomainEvent) bool {
	_, ok := event.(domain.HighRiskDetected)
	return ok
}

func (p *Publisher) message(topic string, event domain.DomainEvent) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event.EventID(), err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.EventID().String()),
		Value: sarama.ByteEncoder(payload),
	}, nil
}

func (p *Publisher) publishSync(ctx context.Context, topic string, msg *sarama.ProducerMessage, event domain.DomainEvent) error {
	type result struct {
		err error
	}
	confirmed := make(chan result, 1)

	go func() {
		_, _, err := p.sync.SendMessage(msg)
		confirmed <- result{err: err}
	}()

	wait := p.cfg.CriticalWaitBudget
	if wait <= 0 {
		wait = 5 * time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case r := <-confirmed:
		if r.err != nil {
			p.recordFailure(topic, event, r.err)
			return &domain.EventPublishingError{Topic: topic, Err: r.err}
		}
		return nil
	case <-timer.C:
		err := fmt.Errorf("confirmation not received within %s", wait)
		p.recordFailure(topic, event, err)
		return &domain.EventPublishingError{Topic: topic, Err: err}
	case <-ctx.Done():
		p.recordFailure(topic, event, ctx.Err())
		return &domain.EventPublishingError{Topic: topic, Err: ctx.Err()}
	}
}

func (p *Publisher) recordFailure(topic string, event domain.DomainEvent, err error) {
	p.metrics.RecordPublishFailure(topic)
	p.log.PublishFailed(topic, event.EventID().String(), err)
}

// drainErrors logs async produce failures. They are deliberately not
// retried and never reach the caller.
func (p *Publisher) drainErrors() {
	for {
		select {
		case producerErr, ok := <-p.async.Errors():
			if !ok {
				return
			}
			topic := ""
			eventID := ""
			if producerErr.Msg != nil {
				topic = producerErr.Msg.Topic
				if key, err := producerErr.Msg.Key.Encode(); err == nil {
					eventID = string(key)
				}
			}
			p.metrics.RecordPublishFailure(topic)
			p.log.PublishFailed(topic, eventID, producerErr.Err)
		case <-p.done:
			return
		}
	}
}

// NewSyncProducer builds the confirmed-delivery producer for critical
// events.
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Timeout = cfg.CriticalWaitBudget
	return sarama.NewSyncProducer(cfg.Brokers, sc)
}

// NewAsyncProducer builds the fire-and-forget producer.
func NewAsyncProducer(cfg config.KafkaConfig) (sarama.AsyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true
	return sarama.NewAsyncProducer(cfg.Brokers, sc)
}
