package bus

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"

	"tradepool/internal/config"
)

// Consumer reads the signals topic under one consumer-group identity.
// Fetch and Commit are split so the dispatcher can advance the offset
// after a dispatch attempt regardless of its outcome.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg config.KafkaConfig) *Consumer {
	start := kafka.FirstOffset
	if strings.EqualFold(cfg.StartOffset, "latest") {
		start = kafka.LastOffset
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.SignalsTopic,
			GroupID:     cfg.GroupID,
			StartOffset: start,
			Dialer: &kafka.Dialer{
				Timeout:   cfg.DialTimeout,
				DualStack: true,
			},
		}),
	}
}

func (c *Consumer) Fetch(ctx context.Context) (kafka.Message, error) {
	return c.reader.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
