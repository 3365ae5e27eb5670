package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fieldsight/spectral-etl/internal/domain"
)

// OutcomeWriter produces terminal outcomes to the sink topic, keyed by
// partition key so outcomes for one unit land in order.
type OutcomeWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewOutcomeWriter creates a Kafka producer for the outcomes topic.
func NewOutcomeWriter(brokers []string, topic string, logger *slog.Logger) *OutcomeWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &OutcomeWriter{writer: w, logger: logger}
}

// Write serializes and publishes a unit outcome.
func (w *OutcomeWriter) Write(ctx context.Context, outcome domain.Outcome) error {
	msg, err := serializeOutcome(outcome)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *OutcomeWriter) Close() error {
	return w.writer.Close()
}

// serializeOutcome marshals an Outcome into a Kafka message.
func serializeOutcome(outcome domain.Outcome) (kafkago.Message, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outcome: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(outcome.Key.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "index", Value: []byte(outcome.Index)},
			{Key: "status", Value: []byte(outcome.Status)},
			{Key: "processed_at", Value: []byte(outcome.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
