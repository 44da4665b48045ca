package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"registration-service/internal/registration"

	"github.com/IBM/sarama"
)

const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

var (
	errMissingID    = errors.New("event has no registration id")
	ErrAuditBacklog = errors.New("audit producer backlog full")
)

// AuditRecord is one entry of the append-only audit topic, keyed by registration id.
type AuditRecord struct {
	Action       string                     `json:"action"`
	ID           string                     `json:"id"`
	Registration *registration.Registration `json:"registration,omitempty"`
	Source       string                     `json:"source"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// AuditProducer streams created and deleted registrations to Kafka.
// Sends never block the caller; delivery errors are logged.
type AuditProducer struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewAuditProducer(brokers []string, topic string, logger *slog.Logger) (*AuditProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Errors = true
	config.Producer.Idempotent = false

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	logger.Info("kafka audit producer initialized", "brokers", brokers, "topic", topic)
	return newAuditProducer(producer, topic, logger), nil
}

func newAuditProducer(producer sarama.AsyncProducer, topic string, logger *slog.Logger) *AuditProducer {
	a := &AuditProducer{
		producer: producer,
		topic:    topic,
		logger:   logger,
		now:      time.Now,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for perr := range producer.Errors() {
			key := ""
			if perr.Msg != nil && perr.Msg.Key != nil {
				if b, err := perr.Msg.Key.Encode(); err == nil {
					key = string(b)
				}
			}
			a.logger.Error("failed to deliver audit record", "topic", a.topic, "key", key, "error", perr.Err)
		}
	}()

	return a
}

func (a *AuditProducer) Name() string { return "kafka-audit" }

func (a *AuditProducer) NotifyCreated(_ context.Context, reg registration.Registration) error {
	return a.enqueue(AuditRecord{
		Action:       ActionCreated,
		ID:           reg.ID,
		Registration: &reg,
	})
}

func (a *AuditProducer) NotifyDeleted(_ context.Context, id string) error {
	return a.enqueue(AuditRecord{
		Action: ActionDeleted,
		ID:     id,
	})
}

func (a *AuditProducer) enqueue(rec AuditRecord) error {
	rec.Source = registration.EventSource
	rec.Timestamp = a.now().UTC()

	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: a.topic,
		Key:   sarama.StringEncoder(rec.ID),
		Value: sarama.ByteEncoder(value),
	}

	select {
	case a.producer.Input() <- msg:
		return nil
	default:
		return ErrAuditBacklog
	}
}

// Close flushes buffered records and waits for the error drain to finish.
func (a *AuditProducer) Close() error {
	err := a.producer.Close()
	a.wg.Wait()
	return err
}
