// Package kafka publishes alert events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/groundwater-client/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every alert message.
const (
	HeaderSeverity   = "severity"
	HeaderObservedAt = "observed_at"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces alert events to a Kafka topic.
// It implements relay.Publisher.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a producer for topic on brokers. Every write waits for
// all in-sync replicas.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, topic: topic, logger: logger}
}

// PublishAlerts serializes events and writes them in a single WriteMessages
// call. Messages are keyed by event ID so repeats of one alert land on the
// same partition.
func (w *Writer) PublishAlerts(ctx context.Context, events []domain.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d alert events to %s: %w", len(msgs), w.topic, err)
	}
	w.logger.Debug("alert events written", "topic", w.topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an AlertEvent into a Kafka message.
func serializeToMessage(event domain.AlertEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderSeverity, Value: []byte(event.Severity)},
			{Key: HeaderObservedAt, Value: []byte(event.ObservedAt.Format(time.RFC3339))},
		},
	}, nil
}
