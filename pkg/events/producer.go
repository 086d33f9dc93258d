package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"medibook/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Producer publishes appointment lifecycle events to Kafka. A nil
// *Producer is valid and drops events, so the ledger works without a
// broker in local setups.
type Producer struct {
	writer *kafka.Writer
	source string
	log    *logger.Logger
	mu     sync.Mutex
	closed bool
}

func NewProducer(brokers []string, topic, source string, log *logger.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // hash by doctor ID keeps per-doctor ordering
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...any) { log.Error(fmt.Sprintf(msg, args...)) }),
	}

	return &Producer{
		writer: writer,
		source: source,
		log:    log,
	}, nil
}

// Publish sends one lifecycle event keyed by doctor ID. Failures are
// logged, not returned: event delivery is best-effort and must never
// roll back a committed booking.
func (p *Producer) Publish(ctx context.Context, eventType string, event AppointmentEvent) {
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to encode appointment event", "event_type", eventType, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.DoctorID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(uuid.New().String())},
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderSchemaVersion, Value: []byte(SchemaVersion)},
			{Key: HeaderSource, Value: []byte(p.source)},
			{Key: HeaderTimestamp, Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Failed to publish appointment event",
			"event_type", eventType,
			"appointment_id", event.AppointmentID,
			"error", err,
		)
		return
	}

	p.log.Debug("Appointment event published",
		"event_type", eventType,
		"appointment_id", event.AppointmentID,
	)
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
