package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"tradepool/internal/config"
)

// Order event kinds published after each persistence step.
const (
	EventOrderOpen   = "order_open"
	EventOrderClose  = "order_close"
	EventOrderSL     = "order_sl"
	EventOrderTP     = "order_tp"
	EventOrderCancel = "order_cancel"
)

// OrderEvent is the JSON payload on the orders topic, keyed by ticker.
type OrderEvent struct {
	Event    string          `json:"event"`
	OrderID  uint64          `json:"order_id"`
	BrokerID string          `json:"broker_id"`
	Strategy string          `json:"strategy"`
	Ticker   string          `json:"ticker"`
	Action   string          `json:"action"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	At       time.Time       `json:"at"`
}

// Publisher emits order events. The execution engine treats publishing as
// best effort; a nil Publisher is valid and drops events.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

// Compile-time interface check.
var _ Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.OrdersTopic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: cfg.WriteTimeout,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Ticker),
		Value: raw,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
