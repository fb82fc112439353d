package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
)

type Handler func(ctx context.Context, event Event) error

// Consumer reads lifecycle events published by other replicas.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
	return &Consumer{reader: reader}
}

// Decode parses a message produced by Message.
func Decode(message kafka.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

// Consume blocks until ctx is done. Undecodable messages are committed and
// skipped; messages whose handler fails are left uncommitted.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		event, err := Decode(message)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to decode event")
			c.commit(ctx, message)
			continue
		}

		if err := handler(ctx, event); err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
			}).Error("Failed to process event")
			continue
		}
		c.commit(ctx, message)
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// InvalidateOnChange returns a handler that calls invalidate with the model
// name of every trained, uploaded or deleted event. Other events are ignored.
func InvalidateOnChange(invalidate func(name string)) Handler {
	return func(_ context.Context, event Event) error {
		switch event.Type {
		case TypeModelTrained, TypeModelUploaded, TypeModelDeleted:
		default:
			return nil
		}
		name, ok := event.Data["model"].(string)
		if !ok || name == "" {
			return fmt.Errorf("event %s has no model name", event.ID)
		}
		invalidate(name)
		return nil
	}
}
