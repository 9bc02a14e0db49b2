// Package kafka publishes export-completion notices so downstream viewers
// can pick up fresh assets without polling the output directory.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

// Notifier produces export notices to a Kafka topic.
// It implements pipeline.NoticePublisher.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the notification topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// PublishExport serializes and publishes one notice. The message key is the
// site id so per-site ordering survives partitioning.
func (n *Notifier) PublishExport(ctx context.Context, notice domain.ExportNotice) error {
	msg, err := serializeToMessage(notice)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish export notice: %w", err)
	}
	n.logger.Info("export notice published",
		"site", notice.SiteID,
		"valid_time", notice.ValidTime,
		"files", len(notice.Files))
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals an ExportNotice into a Kafka message.
func serializeToMessage(notice domain.ExportNotice) (kafkago.Message, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize export notice: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(notice.SiteID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "valid_time", Value: []byte(notice.ValidTime.Format(time.RFC3339))},
			{Key: "generated_at", Value: []byte(notice.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
