package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/agents"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/snappy-loop/podcasts/internal/storage"
)

var (
	ErrPersistenceFailure = errors.New("failed to save audio")
	ErrWorkflowExecution  = errors.New("workflow execution failed")
)

// PreferenceStore is the history the pipeline reads once and writes at the end.
type PreferenceStore interface {
	Aggregate() models.AggregatePreferences
	Record(entry models.PreferenceEntry)
}

// ScriptComposer drafts a script for a topic.
type ScriptComposer interface {
	Compose(ctx context.Context, topic string, tone models.Tone, minutes int, prefs *models.AggregatePreferences) (string, error)
}

// SpeechSynthesizer turns a script into encoded audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, script string, voice models.Voice, format string) ([]byte, error)
}

// AudioWriter persists audio bytes under a key.
type AudioWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// State is the mutable record of one run.
type State struct {
	Request         models.GenerationRequest
	Preferences     models.AggregatePreferences
	StartedAt       time.Time
	Script          string
	Audio           []byte
	AudioFile       string
	DurationSeconds float64
	Success         bool
	ErrorMessage    string
	Err             error
}

func (s *State) fail(prefix string, err error) {
	s.Success = false
	s.Err = err
	s.ErrorMessage = fmt.Sprintf("%s: %v", prefix, err)
}

// Orchestrator runs the generation pipeline.
type Orchestrator struct {
	prefs  PreferenceStore
	script ScriptComposer
	speech SpeechSynthesizer
	audio  AudioWriter
	format string
	now    func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires the pipeline collaborators. format is the audio
// encoding requested from the synthesizer and used as file extension.
func NewOrchestrator(prefs PreferenceStore, script ScriptComposer, speech SpeechSynthesizer, audio AudioWriter, format string, opts ...Option) *Orchestrator {
	if format == "" {
		format = "mp3"
	}
	o := &Orchestrator{
		prefs:  prefs,
		script: script,
		speech: speech,
		audio:  audio,
		format: format,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every stage for req and returns the caller-facing result.
// req must already be normalized.
func (o *Orchestrator) Run(ctx context.Context, req models.GenerationRequest) models.PodcastResponse {
	return o.RunWithProgress(ctx, req, nil)
}

// RunWithProgress is Run with progress invoked before each stage.
func (o *Orchestrator) RunWithProgress(ctx context.Context, req models.GenerationRequest, progress func(Stage)) (resp models.PodcastResponse) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("topic", req.Topic).
				Msg("Pipeline run aborted")
			resp = models.PodcastResponse{
				Success:      false,
				ErrorMessage: fmt.Sprintf("%s: %v", ErrWorkflowExecution, r),
				Topic:        req.Topic,
				VoiceUsed:    req.Voice,
			}
		}
	}()

	state := &State{Request: req}
	for stage := StageFetchPreferences; stage != StageDone; stage = Next(stage, state.Success) {
		if progress != nil {
			progress(stage)
		}
		o.runStage(ctx, stage, state)
	}

	resp = models.PodcastResponse{
		Success:      state.Success,
		ErrorMessage: state.ErrorMessage,
		Topic:        req.Topic,
		VoiceUsed:    req.Voice,
	}
	if state.Success {
		d := state.DurationSeconds
		resp.AudioFile = state.AudioFile
		resp.DurationSeconds = &d
	}
	return resp
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, state *State) {
	switch stage {
	case StageFetchPreferences:
		o.fetchPreferences(state)
	case StageGenerateScript:
		o.generateScript(ctx, state)
	case StageGenerateAudio:
		o.generateAudio(ctx, state)
	case StagePersistAudio:
		o.persistAudio(ctx, state)
	case StageRecordOutcome:
		o.recordOutcome(state)
	case StageHandleError:
		o.handleError(state)
	}
}

func (o *Orchestrator) fetchPreferences(state *State) {
	state.Preferences = o.prefs.Aggregate()
	state.StartedAt = o.now()
	state.Success = true

	log.Info().
		Str("topic", state.Request.Topic).
		Str("tone", string(state.Request.Tone)).
		Str("voice", string(state.Request.Voice)).
		Int("history", state.Preferences.TotalGenerations).
		Msg("Step 1: Preferences loaded")
}

func (o *Orchestrator) generateScript(ctx context.Context, state *State) {
	req := state.Request
	log.Info().Str("topic", req.Topic).Msg("Step 2: Generating script")

	var prefs *models.AggregatePreferences
	if !state.Preferences.Empty() {
		prefs = &state.Preferences
	}
	script, err := o.script.Compose(ctx, req.Topic, req.Tone, req.DurationMinutes, prefs)
	if err != nil {
		state.fail("failed to generate script", err)
		log.Warn().Err(err).Str("topic", req.Topic).Msg("Script generation failed")
		return
	}
	state.Script = script
	state.Success = true
}

func (o *Orchestrator) generateAudio(ctx context.Context, state *State) {
	req := state.Request
	log.Info().Str("topic", req.Topic).Str("voice", string(req.Voice)).Msg("Step 3: Generating audio")

	audio, err := o.speech.Synthesize(ctx, state.Script, req.Voice, o.format)
	if err != nil {
		state.fail("failed to generate audio", err)
		log.Warn().Err(err).Str("topic", req.Topic).Msg("Audio generation failed")
		return
	}
	state.Audio = audio
	state.Success = true
}

func (o *Orchestrator) persistAudio(ctx context.Context, state *State) {
	req := state.Request
	name := AudioFileName(req.Topic, req.Voice, state.StartedAt, o.format)
	log.Info().Str("topic", req.Topic).Str("file", name).Msg("Step 4: Saving audio")

	if err := o.audio.Write(ctx, name, state.Audio, storage.ContentType(o.format)); err != nil {
		state.Success = false
		state.Err = fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
		state.ErrorMessage = state.Err.Error()
		log.Warn().Err(err).Str("file", name).Msg("Audio persistence failed")
		return
	}
	state.AudioFile = name
	state.DurationSeconds = agents.EstimateDuration(state.Script)
	state.Success = true
}

func (o *Orchestrator) recordOutcome(state *State) {
	o.record(models.PreferenceEntry{
		Topic:           state.Request.Topic,
		Tone:            state.Request.Tone,
		Voice:           state.Request.Voice,
		Timestamp:       state.StartedAt,
		DurationSeconds: state.DurationSeconds,
		Success:         state.Success,
	})

	log.Info().
		Str("topic", state.Request.Topic).
		Str("file", state.AudioFile).
		Float64("duration_seconds", state.DurationSeconds).
		Msg("Step 5: Podcast generation complete")
}

func (o *Orchestrator) handleError(state *State) {
	o.record(models.PreferenceEntry{
		Topic:     state.Request.Topic,
		Tone:      state.Request.Tone,
		Voice:     state.Request.Voice,
		Timestamp: state.StartedAt,
		Success:   false,
	})

	log.Error().
		Str("topic", state.Request.Topic).
		Str("error", state.ErrorMessage).
		Msg("Podcast generation failed")
}

// record writes to the preference store; failures never reach the caller.
func (o *Orchestrator) record(entry models.PreferenceEntry) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Interface("panic", r).
				Str("topic", entry.Topic).
				Msg("Failed to update preference memory")
		}
	}()
	o.prefs.Record(entry)
}
