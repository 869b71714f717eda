//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/weather-alert-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/weather-alert-pipeline/internal/config"
	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

const testAlertTopic = "test-weather-alerts"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-broker Kafka container and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func severeWindSet(publishedAt time.Time) domain.PublishedAlertSet {
	return domain.PublishedAlertSet{
		Report:      "knmi_waarschuwingen_202412290900.xml",
		PublishedAt: publishedAt,
		Alerts: domain.AlertSet{
			"Zuid-Holland": {{
				Phenomenon: "Windstoten",
				Code:       "Red",
				StartTime:  time.Date(2024, 12, 29, 10, 0, 0, 0, time.UTC),
				EndTime:    time.Date(2024, 12, 29, 14, 0, 0, 0, time.UTC),
				Text: map[string]string{
					"NL": "Zware windstoten verwacht.",
					"EN": "Severe wind gusts expected.",
				},
			}},
			"Noord-Holland": {},
		},
	}
}

// TestAlertSetRoundTrip verifies that a published alert set survives the
// trip through a real broker: Writer serialization, Reader fetch, commit.
func TestAlertSetRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
		KafkaGroupID:    fmt.Sprintf("test-dispatch-%d", time.Now().UnixNano()),
	}

	publishedAt := time.Date(2024, 12, 29, 9, 5, 0, 0, time.UTC)
	set := severeWindSet(publishedAt)

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.PublishAlertSet(ctx, set))

	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	msg, err := reader.Fetch(ctx)
	require.NoError(t, err, "fetch from alert topic")

	assert.Equal(t, []byte(set.Report), msg.Key)
	assert.Equal(t, testAlertTopic, msg.Topic)

	var got domain.PublishedAlertSet
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, set.Report, got.Report)
	assert.True(t, publishedAt.Equal(got.PublishedAt))

	require.Contains(t, got.Alerts, "Zuid-Holland")
	require.Len(t, got.Alerts["Zuid-Holland"], 1)
	alert := got.Alerts["Zuid-Holland"][0]
	assert.Equal(t, "Windstoten", alert.Phenomenon)
	assert.Equal(t, "Red", alert.Code)
	assert.Equal(t, "Severe wind gusts expected.", alert.Text["EN"])
	assert.Empty(t, got.Alerts["Noord-Holland"])

	require.NotNil(t, msg.Commit, "commit callback should be set")
	require.NoError(t, msg.Commit(ctx))
}

// TestCommittedOffsetSurvivesReconnect verifies at-least-once consumption:
// a committed alert set is not re-fetched by a new reader in the same
// group, while an uncommitted one is.
func TestCommittedOffsetSurvivesReconnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
		KafkaGroupID:    fmt.Sprintf("test-resume-%d", time.Now().UnixNano()),
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	first := severeWindSet(time.Date(2024, 12, 29, 9, 0, 0, 0, time.UTC))
	second := severeWindSet(time.Date(2024, 12, 29, 10, 0, 0, 0, time.UTC))
	second.Report = "knmi_waarschuwingen_202412291000.xml"

	require.NoError(t, writer.PublishAlertSet(ctx, first))
	require.NoError(t, writer.PublishAlertSet(ctx, second))

	// Consume and commit only the first set.
	reader := kafkaadapter.NewReader(cfg, discardLogger())
	msg, err := reader.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(first.Report), msg.Key)
	require.NoError(t, msg.Commit(ctx))
	require.NoError(t, reader.Close())

	// A new reader in the same group resumes at the second set.
	resumed := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = resumed.Close() })

	msg, err = resumed.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(second.Report), msg.Key)
}
