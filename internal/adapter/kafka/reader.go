// Package kafka adapts the partitioned execution substrate: materialization
// units arrive as partition keys on a source topic, and terminal outcomes
// are produced to a sink topic. Delivery is at least once; offsets are
// committed only after the unit's outcome is recorded, so a crash mid-unit
// replays the key and idempotent publication absorbs the duplicate.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fieldsight/spectral-etl/internal/domain"
)

// Unit is one fetched materialization unit plus the message needed to
// commit it once processed.
type Unit struct {
	Key domain.PartitionKey
	msg kafkago.Message
}

// UnitReader consumes partition keys from the units topic as part of a
// consumer group.
type UnitReader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewUnitReader creates a consumer-group reader over the units topic.
func NewUnitReader(brokers []string, topic, groupID string, logger *slog.Logger) *UnitReader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &UnitReader{reader: r, logger: logger}
}

// Fetch blocks for the next unit. Messages whose value is not a valid
// partition key are committed and skipped rather than poisoning the
// partition.
func (r *UnitReader) Fetch(ctx context.Context) (Unit, error) {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			return Unit{}, fmt.Errorf("fetch unit: %w", err)
		}
		key, err := domain.ParsePartitionKey(string(msg.Value))
		if err != nil {
			r.logger.Warn("dropping malformed unit message",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			if err := r.reader.CommitMessages(ctx, msg); err != nil {
				return Unit{}, fmt.Errorf("commit malformed unit: %w", err)
			}
			continue
		}
		return Unit{Key: key, msg: msg}, nil
	}
}

// Commit acknowledges a processed unit.
func (r *UnitReader) Commit(ctx context.Context, unit Unit) error {
	if err := r.reader.CommitMessages(ctx, unit.msg); err != nil {
		return fmt.Errorf("commit unit %s: %w", unit.Key, err)
	}
	return nil
}

func (r *UnitReader) Close() error {
	return r.reader.Close()
}
