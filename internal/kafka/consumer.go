package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// GenerationHandler runs one queued generation.
type GenerationHandler interface {
	HandleGeneration(ctx context.Context, msg *GenerationMessage) error
}

// Consumer reads generation messages and hands each to the handler once.
type Consumer struct {
	reader  messageReader
	handler GenerationHandler
}

// NewConsumer creates a consumer in the given group.
func NewConsumer(brokers []string, topic, groupID string, handler GenerationHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commits
		StartOffset:    kafka.FirstOffset,
	})

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Str("group_id", groupID).
		Msg("Kafka consumer initialized")

	return newConsumer(reader, handler)
}

func newConsumer(r messageReader, handler GenerationHandler) *Consumer {
	return &Consumer{reader: r, handler: handler}
}

// Start consumes until ctx is cancelled. Every fetched message is processed
// once and committed whether or not the handler succeeded.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			log.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Failed to process message, skipping")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit message")
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	log.Debug().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("Processing message")

	var gen GenerationMessage
	if err := json.Unmarshal(msg.Value, &gen); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if err := c.handler.HandleGeneration(ctx, &gen); err != nil {
		return fmt.Errorf("handler error: %w", err)
	}

	log.Info().
		Str("generation_id", gen.ID.String()).
		Msg("Message processed successfully")
	return nil
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	return c.reader.Close()
}
