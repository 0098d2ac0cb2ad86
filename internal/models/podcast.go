package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Tone is the style tag that shapes script generation.
type Tone string

const (
	ToneStorytelling   Tone = "storytelling"
	ToneConversational Tone = "conversational"
	ToneEducational    Tone = "educational"
	ToneEntertaining   Tone = "entertaining"
	ToneProfessional   Tone = "professional"
	ToneCasual         Tone = "casual"
)

// Tones lists the supported tones in display order.
var Tones = []Tone{
	ToneStorytelling,
	ToneConversational,
	ToneEducational,
	ToneEntertaining,
	ToneProfessional,
	ToneCasual,
}

// Valid reports whether t is one of the supported tones.
func (t Tone) Valid() bool {
	for _, v := range Tones {
		if v == t {
			return true
		}
	}
	return false
}

// Voice identifies a speech synthesis persona.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"
)

// Voices lists the supported voices in display order.
var Voices = []Voice{
	VoiceAlloy,
	VoiceEcho,
	VoiceFable,
	VoiceOnyx,
	VoiceNova,
	VoiceShimmer,
}

// Valid reports whether v is one of the supported voices.
func (v Voice) Valid() bool {
	for _, known := range Voices {
		if known == v {
			return true
		}
	}
	return false
}

// Request limits
const (
	MaxTopicLength     = 500
	MinDurationMinutes = 1
	MaxDurationMinutes = 30

	DefaultTone            = ToneConversational
	DefaultVoice           = VoiceFable
	DefaultDurationMinutes = 5
)

// ErrValidation marks a request rejected before any stage runs.
var ErrValidation = errors.New("validation error")

// GenerationRequest is the input of one pipeline run.
type GenerationRequest struct {
	Topic           string `json:"topic"`
	Tone            Tone   `json:"tone,omitempty"`
	Voice           Voice  `json:"voice,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Normalize trims the topic, fills defaults and validates the request.
func (r GenerationRequest) Normalize() (GenerationRequest, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Tone == "" {
		r.Tone = DefaultTone
	}
	if r.Voice == "" {
		r.Voice = DefaultVoice
	}
	if r.DurationMinutes == 0 {
		r.DurationMinutes = DefaultDurationMinutes
	}

	if r.Topic == "" {
		return r, fmt.Errorf("%w: topic cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(r.Topic) > MaxTopicLength {
		return r, fmt.Errorf("%w: topic must be at most %d characters", ErrValidation, MaxTopicLength)
	}
	if !r.Tone.Valid() {
		return r, fmt.Errorf("%w: invalid tone %q", ErrValidation, r.Tone)
	}
	if !r.Voice.Valid() {
		return r, fmt.Errorf("%w: invalid voice %q", ErrValidation, r.Voice)
	}
	if r.DurationMinutes < MinDurationMinutes || r.DurationMinutes > MaxDurationMinutes {
		return r, fmt.Errorf("%w: duration_minutes must be between %d and %d", ErrValidation, MinDurationMinutes, MaxDurationMinutes)
	}
	return r, nil
}

// PodcastResponse is the caller-facing result of a pipeline run.
type PodcastResponse struct {
	Success         bool     `json:"success"`
	AudioFile       string   `json:"audio_file_path,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	ErrorMessage    string   `json:"error_message,omitempty"`
	Topic           string   `json:"topic"`
	VoiceUsed       Voice    `json:"voice_used"`
}

// PreferenceEntry is one historical generation outcome.
type PreferenceEntry struct {
	Topic           string    `json:"topic"`
	Tone            Tone      `json:"tone"`
	Voice           Voice     `json:"voice"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"duration_seconds"`
	Success         bool      `json:"success"`
}

// AggregatePreferences is derived from the current preference history.
type AggregatePreferences struct {
	PreferredVoice    Voice         `json:"preferred_voice,omitempty"`
	PreferredTone     Tone          `json:"preferred_tone,omitempty"`
	SuccessRate       float64       `json:"success_rate"`
	TotalGenerations  int           `json:"total_generations"`
	VoiceDistribution map[Voice]int `json:"voice_distribution"`
	ToneDistribution  map[Tone]int  `json:"tone_distribution"`
}

// Empty reports whether no history contributed to the aggregate.
func (a AggregatePreferences) Empty() bool {
	return a.TotalGenerations == 0
}

// StorageInfo describes the audio storage backend contents.
type StorageInfo struct {
	TotalFiles  int     `json:"total_files"`
	TotalSizeMB float64 `json:"total_size_mb"`
	Location    string  `json:"output_directory"`
}

// MemoryStats is returned by GET /v1/memory/stats.
type MemoryStats struct {
	MemoryEntries   int                  `json:"memory_entries"`
	UserPreferences AggregatePreferences `json:"user_preferences"`
	StorageInfo     StorageInfo          `json:"storage_info"`
}

// Generation statuses
const (
	GenerationQueued    = "queued"
	GenerationRunning   = "running"
	GenerationSucceeded = "succeeded"
	GenerationFailed    = "failed"
)

// Generation is the durable record of one requested podcast.
type Generation struct {
	ID              uuid.UUID  `json:"id"`
	Topic           string     `json:"topic"`
	Tone            Tone       `json:"tone"`
	Voice           Voice      `json:"voice"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	AudioFile       *string    `json:"audio_file_path,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// NewGeneration creates a queued history record for req.
func NewGeneration(req GenerationRequest) *Generation {
	return &Generation{
		ID:              uuid.New(),
		Topic:           req.Topic,
		Tone:            req.Tone,
		Voice:           req.Voice,
		DurationMinutes: req.DurationMinutes,
		Status:          GenerationQueued,
		CreatedAt:       time.Now(),
	}
}

// Request rebuilds the generation request from the record.
func (g *Generation) Request() GenerationRequest {
	return GenerationRequest{
		Topic:           g.Topic,
		Tone:            g.Tone,
		Voice:           g.Voice,
		DurationMinutes: g.DurationMinutes,
	}
}

// EnqueueResponse is returned when a generation is queued.
type EnqueueResponse struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ToneInfo is the public description of a tone.
type ToneInfo struct {
	ID          Tone     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BestFor     []string `json:"best_for"`
}

// VoiceInfo is the public description of a voice.
type VoiceInfo struct {
	ID          Voice    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BestFor     []string `json:"best_for"`
	Personality string   `json:"personality"`
}
