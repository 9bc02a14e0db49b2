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
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/kafka"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

const testNoticeTopic = "test-export-notices"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a topic on the cluster controller so the first publish
// does not race topic auto-creation.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestNotifierPublish verifies the kafka.Notifier against a real broker: the
// notice round-trips with the site key and the time headers intact.
func TestNotifierPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testNoticeTopic)

	notifier := kafka.NewNotifier([]string{broker}, testNoticeTopic, discardLogger())
	t.Cleanup(func() { _ = notifier.Close() })

	validTime := time.Date(2024, 3, 3, 0, 30, 12, 0, time.UTC)
	generatedAt := time.Date(2024, 3, 3, 0, 33, 45, 0, time.UTC)
	notice := domain.ExportNotice{
		SiteID:      "KMPX",
		ValidTime:   validTime,
		OutputDir:   "/var/lib/radar-etl/out/kmpx-20240303-003012",
		Manifest:    domain.ManifestFileName,
		Files:       []string{"x_wind.vf", "y_wind.vf", domain.ManifestFileName},
		GeneratedAt: generatedAt,
	}
	require.NoError(t, notifier.PublishExport(ctx, notice))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testNoticeTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from notice topic")

	assert.Equal(t, []byte("KMPX"), msg.Key)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, validTime.Format(time.RFC3339), headers["valid_time"])
	assert.Equal(t, generatedAt.Format(time.RFC3339), headers["generated_at"])

	var got domain.ExportNotice
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, notice.SiteID, got.SiteID)
	assert.True(t, notice.ValidTime.Equal(got.ValidTime))
	assert.Equal(t, notice.OutputDir, got.OutputDir)
	assert.Equal(t, notice.Files, got.Files)
}

// TestNotifierPerSiteOrdering publishes several notices for one site and
// verifies they arrive in publish order; the site-id key pins them to one
// partition.
func TestNotifierPerSiteOrdering(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testNoticeTopic)

	notifier := kafka.NewNotifier([]string{broker}, testNoticeTopic, discardLogger())
	t.Cleanup(func() { _ = notifier.Close() })

	base := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	const count = 5
	for i := 0; i < count; i++ {
		notice := domain.ExportNotice{
			SiteID:      "KMPX",
			ValidTime:   base.Add(time.Duration(i) * 5 * time.Minute),
			OutputDir:   fmt.Sprintf("/out/kmpx-%d", i),
			Manifest:    domain.ManifestFileName,
			GeneratedAt: base.Add(time.Duration(i)*5*time.Minute + time.Minute),
		}
		require.NoError(t, notifier.PublishExport(ctx, notice))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testNoticeTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i := 0; i < count; i++ {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read notice %d", i)

		var got domain.ExportNotice
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, fmt.Sprintf("/out/kmpx-%d", i), got.OutputDir)
	}
}
