package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/agents"
	"github.com/snappy-loop/podcasts/internal/database"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/snappy-loop/podcasts/internal/processor"
	"github.com/snappy-loop/podcasts/internal/storage"
)

var (
	ErrQueueUnavailable   = errors.New("generation queue not configured")
	ErrHistoryUnavailable = errors.New("generation history not configured")
	ErrGenerationNotFound = errors.New("generation not found")
)

// List limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// PodcastService validates requests and fronts the pipeline, history,
// queue, preference memory and audio storage.
type PodcastService struct {
	runner      generationRunner
	memory      preferenceMemory
	audio       audioStore
	history     generationRepository
	queue       GenerationPublisher
	configErr   error
	audioMaxAge time.Duration
}

// Option configures a PodcastService.
type Option func(*PodcastService)

// WithHistory enables durable generation history.
func WithHistory(repo generationRepository) Option {
	return func(s *PodcastService) { s.history = repo }
}

// WithQueue enables asynchronous generations.
func WithQueue(pub GenerationPublisher) Option {
	return func(s *PodcastService) { s.queue = pub }
}

// WithConfigError makes every generation fail with err before any stage
// runs. Used when provider credentials are missing.
func WithConfigError(err error) Option {
	return func(s *PodcastService) { s.configErr = err }
}

// NewPodcastService creates a new PodcastService.
func NewPodcastService(runner generationRunner, memory preferenceMemory, audio audioStore, audioMaxAge time.Duration, opts ...Option) *PodcastService {
	s := &PodcastService{
		runner:      runner,
		memory:      memory,
		audio:       audio,
		audioMaxAge: audioMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the pipeline synchronously. Only validation and
// configuration problems are returned as errors; pipeline failures are
// reported in the response.
func (s *PodcastService) Generate(ctx context.Context, req models.GenerationRequest) (models.PodcastResponse, error) {
	return s.GenerateWithProgress(ctx, req, nil)
}

// GenerateWithProgress is Generate with progress invoked before each stage.
func (s *PodcastService) GenerateWithProgress(ctx context.Context, req models.GenerationRequest, progress func(processor.Stage)) (models.PodcastResponse, error) {
	req, err := req.Normalize()
	if err != nil {
		return models.PodcastResponse{}, err
	}
	if s.configErr != nil {
		return models.PodcastResponse{}, s.configErr
	}

	gen := models.NewGeneration(req)
	if s.history != nil {
		if err := s.history.Create(ctx, gen); err != nil {
			log.Warn().Err(err).Str("topic", req.Topic).Msg("Failed to record generation history")
		}
	}

	log.Info().
		Str("generation_id", gen.ID.String()).
		Str("topic", req.Topic).
		Str("tone", string(req.Tone)).
		Str("voice", string(req.Voice)).
		Int("duration_minutes", req.DurationMinutes).
		Msg("Generating podcast")

	return s.runner.Execute(ctx, gen.ID, req, progress), nil
}

// Enqueue stores a queued generation and publishes it for a worker.
func (s *PodcastService) Enqueue(ctx context.Context, req models.GenerationRequest) (*models.EnqueueResponse, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	if s.queue == nil || s.history == nil {
		return nil, ErrQueueUnavailable
	}

	gen := models.NewGeneration(req)
	if err := s.history.Create(ctx, gen); err != nil {
		return nil, fmt.Errorf("failed to create generation: %w", err)
	}

	if err := s.queue.PublishGeneration(ctx, gen.ID, ""); err != nil {
		msg := fmt.Sprintf("failed to queue generation: %v", err)
		if ferr := s.history.Finish(ctx, gen.ID, models.PodcastResponse{ErrorMessage: msg, Topic: req.Topic, VoiceUsed: req.Voice}); ferr != nil {
			log.Error().Err(ferr).Str("generation_id", gen.ID.String()).Msg("Failed to mark generation failed")
		}
		return nil, fmt.Errorf("failed to queue generation: %w", err)
	}

	log.Info().
		Str("generation_id", gen.ID.String()).
		Str("topic", req.Topic).
		Msg("Generation queued")

	return &models.EnqueueResponse{
		ID:        gen.ID,
		Status:    gen.Status,
		CreatedAt: gen.CreatedAt,
	}, nil
}

// Get returns one history record.
func (s *PodcastService) Get(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	g, err := s.history.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrGenerationNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return g, nil
}

// List returns recent history records, newest first. limit is clamped to
// [1, MaxListLimit]; zero means DefaultListLimit.
func (s *PodcastService) List(ctx context.Context, limit int) ([]*models.Generation, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	switch {
	case limit == 0:
		limit = DefaultListLimit
	case limit < 1:
		limit = 1
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.history.ListRecent(ctx, limit)
}

// Stats reports preference memory and audio storage figures.
func (s *PodcastService) Stats(ctx context.Context) (*models.MemoryStats, error) {
	info, err := s.audio.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage info: %w", err)
	}
	return &models.MemoryStats{
		MemoryEntries:   s.memory.Count(),
		UserPreferences: s.memory.Aggregate(),
		StorageInfo:     info,
	}, nil
}

// ClearMemory forgets all preference history.
func (s *PodcastService) ClearMemory() {
	s.memory.Clear()
	log.Info().Msg("Preference memory cleared")
}

// CleanupAudio removes audio files older than the configured max age.
func (s *PodcastService) CleanupAudio(ctx context.Context) (int, error) {
	n, err := s.audio.Cleanup(ctx, s.audioMaxAge)
	if err != nil {
		return n, fmt.Errorf("failed to clean up audio: %w", err)
	}
	log.Info().Int("deleted", n).Dur("max_age", s.audioMaxAge).Msg("Old audio files removed")
	return n, nil
}

// OpenAudio opens a stored audio file. Empty files are reported as missing.
func (s *PodcastService) OpenAudio(ctx context.Context, name string) (*storage.Object, error) {
	obj, err := s.audio.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if obj.Size == 0 {
		obj.Body.Close()
		return nil, storage.ErrNotFound
	}
	return obj, nil
}

// Voices lists the available voices.
func (s *PodcastService) Voices() []models.VoiceInfo {
	return agents.Voices()
}

// Tones lists the available tones.
func (s *PodcastService) Tones() []models.ToneInfo {
	return agents.Tones()
}
