package processor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/snappy-loop/podcasts/internal/kafka"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	gens     map[uuid.UUID]*models.Generation
	running  []uuid.UUID
	finished map[uuid.UUID]models.PodcastResponse
}

func newFakeRepo(gens ...*models.Generation) *fakeRepo {
	r := &fakeRepo{gens: map[uuid.UUID]*models.Generation{}, finished: map[uuid.UUID]models.PodcastResponse{}}
	for _, g := range gens {
		r.gens[g.ID] = g
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gens[id]
	if !ok {
		return nil, errors.New("generation not found")
	}
	return g, nil
}

func (r *fakeRepo) MarkRunning(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = append(r.running, id)
	return nil
}

func (r *fakeRepo) Finish(_ context.Context, id uuid.UUID, resp models.PodcastResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[id] = resp
	return nil
}

type recordingEvents struct {
	events []kafka.GenerationEvent
	err    error
}

func (e *recordingEvents) PublishEvent(_ context.Context, ev kafka.GenerationEvent) error {
	e.events = append(e.events, ev)
	return e.err
}

func TestProcessGeneration_Success(t *testing.T) {
	gen := models.NewGeneration(quantumRequest())
	repo := newFakeRepo(gen)
	events := &recordingEvents{}
	orch := newPipeline(newMemoryStore(), staticComposer(strings.Repeat("word ", 300)), staticSynth("audio"), newMemWriter())
	p := NewJobProcessor(orch, repo, events)

	require.NoError(t, p.HandleGeneration(context.Background(), &kafka.GenerationMessage{ID: gen.ID}))

	assert.Equal(t, []uuid.UUID{gen.ID}, repo.running)
	resp := repo.finished[gen.ID]
	assert.True(t, resp.Success)
	assert.Equal(t, "quantum-computing_alloy_20240501_123000.mp3", resp.AudioFile)

	require.Len(t, events.events, 1)
	assert.Equal(t, kafka.EventPodcastCompleted, events.events[0].Type)
	assert.Equal(t, gen.ID, events.events[0].ID)
	assert.Equal(t, resp.AudioFile, events.events[0].AudioFile)
	assert.Empty(t, events.events[0].Error)
}

func TestProcessGeneration_FailurePublishesFailedEvent(t *testing.T) {
	gen := models.NewGeneration(quantumRequest())
	repo := newFakeRepo(gen)
	events := &recordingEvents{err: errors.New("broker down")}
	orch := newPipeline(newMemoryStore(), &stubComposer{err: errors.New("model offline")}, staticSynth("audio"), newMemWriter())
	p := NewJobProcessor(orch, repo, events)

	err := p.ProcessGeneration(context.Background(), gen.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate script")

	assert.False(t, repo.finished[gen.ID].Success)
	require.Len(t, events.events, 1)
	assert.Equal(t, kafka.EventPodcastFailed, events.events[0].Type)
	assert.Contains(t, events.events[0].Error, "model offline")
}

func TestProcessGeneration_SkipsFinished(t *testing.T) {
	gen := models.NewGeneration(quantumRequest())
	gen.Status = models.GenerationSucceeded
	repo := newFakeRepo(gen)
	composer := &stubComposer{script: strings.Repeat("word ", 300)}
	p := NewJobProcessor(newPipeline(newMemoryStore(), composer, staticSynth("a"), newMemWriter()), repo, nil)

	require.NoError(t, p.ProcessGeneration(context.Background(), gen.ID))
	assert.Empty(t, repo.running)
	assert.Empty(t, repo.finished)
}

func TestProcessGeneration_InvalidStoredRequest(t *testing.T) {
	gen := models.NewGeneration(quantumRequest())
	gen.Voice = "mercury"
	repo := newFakeRepo(gen)
	p := NewJobProcessor(newPipeline(newMemoryStore(), staticComposer("x"), staticSynth("a"), newMemWriter()), repo, nil)

	err := p.ProcessGeneration(context.Background(), gen.ID)
	require.Error(t, err)
	assert.Contains(t, repo.finished[gen.ID].ErrorMessage, "invalid voice")
	assert.Empty(t, repo.running)
}

func TestProcessGeneration_Missing(t *testing.T) {
	p := NewJobProcessor(newPipeline(newMemoryStore(), staticComposer("x"), staticSynth("a"), newMemWriter()), newFakeRepo(), nil)
	assert.Error(t, p.ProcessGeneration(context.Background(), uuid.New()))

	noRepo := NewJobProcessor(newPipeline(newMemoryStore(), staticComposer("x"), staticSynth("a"), newMemWriter()), nil, nil)
	assert.Error(t, noRepo.ProcessGeneration(context.Background(), uuid.New()))
}

func TestExecute_WithoutRepoOrEvents(t *testing.T) {
	orch := newPipeline(newMemoryStore(), staticComposer(strings.Repeat("word ", 300)), staticSynth("audio"), newMemWriter())
	p := NewJobProcessor(orch, nil, nil)

	var stages []Stage
	resp := p.Execute(context.Background(), uuid.New(), quantumRequest(), func(s Stage) { stages = append(stages, s) })
	assert.True(t, resp.Success, resp.ErrorMessage)
	assert.Equal(t, StageRecordOutcome, stages[len(stages)-1])
}

func TestPublishers_FanOut(t *testing.T) {
	a := &recordingEvents{}
	b := &recordingEvents{err: errors.New("webhook down")}
	c := &recordingEvents{}

	err := Publishers{a, b, c}.PublishEvent(context.Background(), kafka.GenerationEvent{Type: kafka.EventPodcastCompleted})
	assert.ErrorContains(t, err, "webhook down")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Len(t, c.events, 1)
}
