// Package kafka carries queued generation requests and outcome events.
package kafka

import (
	"time"

	"github.com/google/uuid"
)

// Event types published after a run.
const (
	EventPodcastCompleted = "podcast_completed"
	EventPodcastFailed    = "podcast_failed"
)

// GenerationMessage asks a worker to run a queued generation.
type GenerationMessage struct {
	ID      uuid.UUID `json:"id"`
	TraceID string    `json:"trace_id,omitempty"`
}

// GenerationEvent reports the outcome of a run.
type GenerationEvent struct {
	Type      string    `json:"type"`
	ID        uuid.UUID `json:"id"`
	Topic     string    `json:"topic"`
	AudioFile string    `json:"audio_file_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
