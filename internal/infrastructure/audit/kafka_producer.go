package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/logger"
)

var _ service.AuditService = (*KafkaProducer)(nil)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes audit events as JSON to a Kafka topic, keyed by
// event type so one type keeps its order within a partition.
type KafkaProducer struct {
	writer MessageWriter
	logger logger.Logger
}

// NewKafkaProducer creates a producer writing to cfg.Topic on cfg.Brokers.
func NewKafkaProducer(cfg *config.AuditConfig, log logger.Logger) (*KafkaProducer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka audit sink needs brokers and a topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 5 * time.Second,
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return NewKafkaProducerWithWriter(writer, log), nil
}

// NewKafkaProducerWithWriter wraps an existing writer.
func NewKafkaProducerWithWriter(w MessageWriter, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: w,
		logger: log.WithComponent("KafkaProducer"),
	}
}

// LogEvent sends an audit event to the Kafka topic.
func (p *KafkaProducer) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return nil
	}
	bytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "Failed to marshal audit event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventType),
		Value: bytes,
		Time:  event.Timestamp,
	})
	if err != nil {
		p.logger.Error(ctx, "Failed to write audit event to Kafka", err,
			logger.String("event_type", string(event.EventType)),
			logger.String("event_id", event.EventID.String()),
		)
	}
	return err
}

// Close closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
