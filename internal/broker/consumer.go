package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one fetched message. The caller commits the
// offset only if handler returns nil — this is what makes at-least-once
// delivery safe to build a dedup ledger on top of.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consumer reads from a topic within a consumer group and commits offsets
// only after a successful handler call.
type Consumer interface {
	Run(ctx context.Context, handler MessageHandler) error
	Close() error
}

type kafkaConsumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewConsumer returns a Consumer in the given group reading topic.
// Multiple Consumers sharing groupID and topic form one consumer group;
// kafka rebalances partitions across them, which is how WORKER_CONCURRENCY
// goroutines fan out.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:                brokers,
		GroupID:                groupID,
		Topic:                  topic,
		MinBytes:               1,
		MaxBytes:               10e6,
		MaxWait:                1 * time.Second,
		HeartbeatInterval:      3 * time.Second,
		PartitionWatchInterval: 5 * time.Second,
		MaxAttempts:            3,
		Logger:                 kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:            kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	})
	return &kafkaConsumer{reader: reader, logger: logger}
}

// Run fetches and handles messages until ctx is cancelled. It commits the
// offset only when handler succeeds; a handler error leaves that offset
// uncommitted and Run moves on to the next message, so the failed message
// is redelivered after a restart or rebalance only if no later message of
// the same partition was committed first. Retry and DLQ logic live in the
// handler, not here — Run just guarantees "no commit without success".
func (c *kafkaConsumer) Run(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("fetch message failed", zap.Error(err))
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.logger.Error("handler failed, offset not committed",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit offset failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *kafkaConsumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("close consumer: %w", err)
	}
	return nil
}
