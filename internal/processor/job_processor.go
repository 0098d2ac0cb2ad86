package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/kafka"
	"github.com/snappy-loop/podcasts/internal/models"
)

// GenerationRepository is the history store updated around each run.
type GenerationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, resp models.PodcastResponse) error
}

// EventPublisher announces finished runs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event kafka.GenerationEvent) error
}

// Publishers fans an event out to every publisher.
type Publishers []EventPublisher

// PublishEvent calls every publisher and joins their errors.
func (ps Publishers) PublishEvent(ctx context.Context, event kafka.GenerationEvent) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobProcessor runs generations and keeps their history row and events in
// step with the pipeline outcome. repo and events may be nil.
type JobProcessor struct {
	orch   *Orchestrator
	repo   GenerationRepository
	events EventPublisher
	now    func() time.Time
}

// NewJobProcessor creates a job processor around the orchestrator.
func NewJobProcessor(orch *Orchestrator, repo GenerationRepository, events EventPublisher) *JobProcessor {
	return &JobProcessor{
		orch:   orch,
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

// HandleGeneration implements kafka.GenerationHandler.
func (p *JobProcessor) HandleGeneration(ctx context.Context, msg *kafka.GenerationMessage) error {
	return p.ProcessGeneration(ctx, msg.ID)
}

// ProcessGeneration loads a queued generation and runs it once.
func (p *JobProcessor) ProcessGeneration(ctx context.Context, id uuid.UUID) error {
	if p.repo == nil {
		return fmt.Errorf("generation %s: no history store configured", id)
	}
	log.Info().Str("generation_id", id.String()).Msg("Starting generation processing")

	gen, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get generation: %w", err)
	}
	if gen.Status == models.GenerationSucceeded || gen.Status == models.GenerationFailed {
		log.Warn().
			Str("generation_id", id.String()).
			Str("status", gen.Status).
			Msg("Generation already processed")
		return nil
	}

	req, err := gen.Request().Normalize()
	if err != nil {
		resp := models.PodcastResponse{ErrorMessage: err.Error(), Topic: gen.Topic, VoiceUsed: gen.Voice}
		p.finish(ctx, id, resp)
		return err
	}

	resp := p.Execute(ctx, id, req, nil)
	if !resp.Success {
		return fmt.Errorf("generation %s: %s", id, resp.ErrorMessage)
	}
	return nil
}

// Execute runs the pipeline for an already validated request and records
// the outcome under id.
func (p *JobProcessor) Execute(ctx context.Context, id uuid.UUID, req models.GenerationRequest, progress func(Stage)) models.PodcastResponse {
	if p.repo != nil {
		if err := p.repo.MarkRunning(ctx, id); err != nil {
			log.Error().Err(err).Str("generation_id", id.String()).Msg("Failed to mark generation running")
		}
	}

	resp := p.orch.RunWithProgress(ctx, req, progress)
	p.finish(ctx, id, resp)

	log.Info().
		Str("generation_id", id.String()).
		Bool("success", resp.Success).
		Str("file", resp.AudioFile).
		Msg("Generation processing finished")
	return resp
}

func (p *JobProcessor) finish(ctx context.Context, id uuid.UUID, resp models.PodcastResponse) {
	if p.repo != nil {
		if err := p.repo.Finish(ctx, id, resp); err != nil {
			log.Error().Err(err).Str("generation_id", id.String()).Msg("Failed to store generation outcome")
		}
	}
	p.publishEvent(ctx, id, resp)
}

func (p *JobProcessor) publishEvent(ctx context.Context, id uuid.UUID, resp models.PodcastResponse) {
	if p.events == nil {
		return
	}
	event := kafka.GenerationEvent{
		Type:      kafka.EventPodcastCompleted,
		ID:        id,
		Topic:     resp.Topic,
		AudioFile: resp.AudioFile,
		Timestamp: p.now(),
	}
	if !resp.Success {
		event.Type = kafka.EventPodcastFailed
		event.Error = resp.ErrorMessage
	}
	if err := p.events.PublishEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("generation_id", id.String()).Msg("Failed to publish generation event")
	}
}
