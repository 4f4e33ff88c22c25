package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/synop-dashboard/internal/config"
	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes snapshot rows to a Kafka topic, one message per station.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic. Messages are
// hashed by station so each station's history stays on one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every observation in the snapshot and writes them in a
// single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, snap domain.Snapshot) error {
	if len(snap.Observations) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Observations))
	for i := range snap.Observations {
		msg, err := serializeToMessage(snap, snap.Observations[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("snapshot published", "run_id", snap.RunID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message keyed by station.
func serializeToMessage(snap domain.Snapshot, obs domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation %s: %w", obs.Station, err)
	}
	return kafkago.Message{
		Key:   []byte(obs.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(snap.RunID)},
			{Key: "fetched_at", Value: []byte(snap.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
