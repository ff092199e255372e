package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/log"
	"github.com/segmentio/kafka-go"
)

// Producer publishes analyzer messages to a single topic.
type Producer struct {
	Config *cfg.Config
	Logger log.Logger
	writer *kafka.Writer
}

func NewProducer(config *cfg.Config, logger log.Logger, topic string) (*Producer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		return nil, errors.New("no kafka topic configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		Config: config,
		Logger: logger,
		writer: writer,
	}, nil
}

// Publish marshals value as JSON and sends it keyed by key.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonBytes,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
