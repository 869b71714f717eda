package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-alert-pipeline/internal/config"
	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

// Reader consumes alert sets from the distribution topic as part of a
// consumer group. Offsets are committed explicitly via the message's Commit
// callback after the dispatcher has processed the alert set, giving
// at-least-once delivery.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a group consumer for the configured alert topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaAlertTopic,
		GroupID: cfg.KafkaGroupID,
	})
	return &Reader{reader: r, logger: logger}
}

// Fetch blocks until the next message or context cancellation.
func (r *Reader) Fetch(ctx context.Context) (domain.ChannelMessage, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.ChannelMessage{}, err
	}
	return mapMessage(r.reader, msg), nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessage(reader *kafkago.Reader, msg kafkago.Message) domain.ChannelMessage {
	return domain.ChannelMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return reader.CommitMessages(ctx, msg)
		},
	}
}
