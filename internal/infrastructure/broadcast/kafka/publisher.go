// Package kafka streams notifications to a Kafka topic for downstream
// consumers (recorders, analytics, external displays).
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// batchTimeout caps how long a notification waits for its batch to fill.
const batchTimeout = 10 * time.Millisecond

// Publisher implements ports.Broadcaster on a single topic. Messages are
// keyed by game ID and hash-balanced, so each game's notifications land on
// one partition in commit order.
//
// The writer is asynchronous: Broadcast is called under the engine's game
// lock and must not wait on the brokers. Delivery failures are logged.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher for the configured brokers and topic.
func NewPublisher(cfg config.KafkaConfig, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{writer: newWriter(cfg, logger.Named("kafka"))}, nil
}

func newWriter(cfg config.KafkaConfig, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		Completion:             completion(cfg.Topic, logger),
	}
}

// completion logs batches the writer gave up on.
func completion(topic string, logger *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		games := make([]string, 0, len(msgs))
		for _, m := range msgs {
			games = append(games, string(m.Key))
		}
		logger.Warn("dropping notifications",
			zap.String("topic", topic),
			zap.Int("messages", len(msgs)),
			zap.Strings("game_ids", games),
			zap.Error(err))
	}
}

// Broadcast implements ports.Broadcaster.
func (p *Publisher) Broadcast(ctx context.Context, gameID string, n entities.Notification) error {
	if gameID == "" {
		return errors.New("notification missing game id")
	}
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(gameID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", n.Kind, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
