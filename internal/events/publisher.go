package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cartpilot/internal/logger"

	"github.com/segmentio/kafka-go"
)

// WidgetEvent is a storefront widget interaction published for async
// processing by the worker.
type WidgetEvent struct {
	Type       string                 `json:"type"`
	CartToken  string                 `json:"cart_token,omitempty"`
	ProductID  string                 `json:"product_id,omitempty"`
	ShopDomain string                 `json:"shop_domain,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Publisher writes widget events to Kafka. Publishing is best-effort:
// callers log and move on, tracking must never affect the HTTP response.
type Publisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewPublisher(brokers, topic string, logger *logger.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event WidgetEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
