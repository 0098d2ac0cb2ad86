package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/snappy-loop/podcasts/internal/processor"
	"github.com/snappy-loop/podcasts/internal/storage"
)

// GenerationPublisher queues generations (e.g. to Kafka). May be nil to disable queuing.
type GenerationPublisher interface {
	PublishGeneration(ctx context.Context, id uuid.UUID, traceID string) error
}

// generationRunner is the subset of processor.JobProcessor used by PodcastService.
type generationRunner interface {
	Execute(ctx context.Context, id uuid.UUID, req models.GenerationRequest, progress func(processor.Stage)) models.PodcastResponse
}

// generationRepository is the subset of history DB operations used by PodcastService.
type generationRepository interface {
	Create(ctx context.Context, g *models.Generation) error
	Finish(ctx context.Context, id uuid.UUID, resp models.PodcastResponse) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Generation, error)
}

// preferenceMemory is the subset of memory.Store used by PodcastService.
type preferenceMemory interface {
	Aggregate() models.AggregatePreferences
	Count() int
	Clear()
}

// audioStore is the subset of storage.Store used by PodcastService.
type audioStore interface {
	Open(ctx context.Context, key string) (*storage.Object, error)
	Info(ctx context.Context) (models.StorageInfo, error)
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}
