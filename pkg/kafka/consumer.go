package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/log"
	"github.com/segmentio/kafka-go"
)

// Consumer reads a topic inside a consumer group and dispatches messages to
// the handler registered for their key.
type Consumer struct {
	Config   *cfg.Config
	Logger   log.Logger
	reader   *kafka.Reader
	handlers map[string]func([]byte) error
}

func NewConsumer(config *cfg.Config, logger log.Logger, topic, groupID string) (*Consumer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		StartOffset:    kafka.FirstOffset,
		RetentionTime:  7 * 24 * time.Hour,
		CommitInterval: time.Second,
	})

	return &Consumer{
		Config:   config,
		Logger:   logger,
		reader:   reader,
		handlers: make(map[string]func([]byte) error),
	}, nil
}

// RegisterHandler binds a handler to a message key. Must be called before
// Start; the map is not guarded.
func (c *Consumer) RegisterHandler(key string, handler func([]byte) error) {
	c.handlers[key] = handler
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.Logger.Info(ctx, "Starting kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return c.reader.Close()
			}
			c.Logger.Error(ctx, "Error reading message: %v", err)
			continue
		}

		key := string(message.Key)
		handler, exists := c.handlers[key]
		if !exists {
			c.Logger.Warn(ctx, "No handler registered for message key: %s", key)
			continue
		}
		if err := handler(message.Value); err != nil {
			c.Logger.Error(ctx, "Error handling message with key %s: %v", key, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
