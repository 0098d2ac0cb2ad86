package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes generation jobs and outcome events.
type Producer struct {
	writer      messageWriter
	jobsTopic   string
	eventsTopic string
}

// NewProducer creates a producer writing to the jobs and events topics.
func NewProducer(brokers []string, jobsTopic, eventsTopic string) *Producer {
	// topic is set per message
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
	}

	log.Info().
		Strs("brokers", brokers).
		Str("jobs_topic", jobsTopic).
		Str("events_topic", eventsTopic).
		Msg("Kafka producer initialized")

	return newProducer(writer, jobsTopic, eventsTopic)
}

func newProducer(w messageWriter, jobsTopic, eventsTopic string) *Producer {
	return &Producer{writer: w, jobsTopic: jobsTopic, eventsTopic: eventsTopic}
}

// PublishGeneration queues a generation for the worker.
func (p *Producer) PublishGeneration(ctx context.Context, id uuid.UUID, traceID string) error {
	data, err := json.Marshal(GenerationMessage{ID: id, TraceID: traceID})
	if err != nil {
		return fmt.Errorf("failed to marshal generation message: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.jobsTopic,
		Key:   []byte(id.String()),
		Value: data,
	}); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Info().
		Str("generation_id", id.String()).
		Str("topic", p.jobsTopic).
		Msg("Generation message published to Kafka")
	return nil
}

// PublishEvent publishes a run outcome.
func (p *Producer) PublishEvent(ctx context.Context, event GenerationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal generation event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.eventsTopic,
		Key:   []byte(event.ID.String()),
		Value: data,
	}); err != nil {
		return fmt.Errorf("failed to write event to kafka: %w", err)
	}

	log.Info().
		Str("generation_id", event.ID.String()).
		Str("event", event.Type).
		Str("topic", p.eventsTopic).
		Msg("Generation event published to Kafka")
	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	log.Info().Msg("Closing Kafka producer")
	return p.writer.Close()
}
