package kafka

import (
	"context"
	"encoding/json"
	"log"

	"ms-pos/internal/models"

	"github.com/segmentio/kafka-go"
)

// Consumer bridges the external-order topic back into the in-process SSE
// emitter, so staff clients connected to any instance get every
// submission regardless of which instance persisted it.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start consumes external-order events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler func(ext models.ExternalOrder)) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("kafka: error reading message: %v", err)
			continue
		}

		var ext models.ExternalOrder
		if err := json.Unmarshal(msg.Value, &ext); err != nil {
			log.Printf("kafka: failed to unmarshal external order event: %v", err)
			continue
		}

		handler(ext)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
