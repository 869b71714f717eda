// Package kafka adapts the internal distribution channel to Kafka: the
// ingest service publishes serialized alert sets, the dispatch service
// consumes them through a consumer group with explicit offset commits.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-alert-pipeline/internal/config"
	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

// Writer publishes alert sets to the distribution topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAlertSet serializes and publishes one alert set.
func (w *Writer) PublishAlertSet(ctx context.Context, set domain.PublishedAlertSet) error {
	msg, err := serializeAlertSet(set)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeAlertSet marshals a published alert set into a Kafka message,
// keyed by report filename so re-publishes of the same report land on the
// same partition.
func serializeAlertSet(set domain.PublishedAlertSet) (kafkago.Message, error) {
	data, err := json.Marshal(set)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert set: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(set.Report),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "published_at", Value: []byte(set.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
