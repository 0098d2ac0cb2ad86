// Package handlers exposes the podcast service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/snappy-loop/podcasts/internal/processor"
	"github.com/snappy-loop/podcasts/internal/storage"
)

// podcastService is the subset of services.PodcastService used by Handler.
type podcastService interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.PodcastResponse, error)
	GenerateWithProgress(ctx context.Context, req models.GenerationRequest, progress func(processor.Stage)) (models.PodcastResponse, error)
	Enqueue(ctx context.Context, req models.GenerationRequest) (*models.EnqueueResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Generation, error)
	List(ctx context.Context, limit int) ([]*models.Generation, error)
	Stats(ctx context.Context) (*models.MemoryStats, error)
	ClearMemory()
	CleanupAudio(ctx context.Context) (int, error)
	OpenAudio(ctx context.Context, name string) (*storage.Object, error)
	Voices() []models.VoiceInfo
	Tones() []models.ToneInfo
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler contains all HTTP handlers
type Handler struct {
	svc    podcastService
	checks map[string]HealthCheck
}

// NewHandler creates a new handler. checks are run by GET /healthz.
func NewHandler(svc podcastService, checks map[string]HealthCheck) *Handler {
	return &Handler{svc: svc, checks: checks}
}

// Router builds the HTTP routes. authMiddleware guards /v1 and may be nil.
func (h *Handler) Router(authMiddleware mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	if authMiddleware != nil {
		api.Use(authMiddleware)
	}
	api.HandleFunc("/podcasts", h.GeneratePodcast).Methods("POST")
	api.HandleFunc("/podcasts", h.ListPodcasts).Methods("GET")
	api.HandleFunc("/podcasts/jobs", h.EnqueuePodcast).Methods("POST")
	api.HandleFunc("/podcasts/jobs/{id}", h.GetPodcastJob).Methods("GET")
	api.HandleFunc("/podcasts/ws", h.PodcastWS).Methods("GET")
	api.HandleFunc("/download/{filename}", h.DownloadAudio).Methods("GET")
	api.HandleFunc("/voices", h.ListVoices).Methods("GET")
	api.HandleFunc("/tones", h.ListTones).Methods("GET")
	api.HandleFunc("/memory/stats", h.MemoryStats).Methods("GET")
	api.HandleFunc("/memory/clear", h.ClearMemory).Methods("DELETE")
	api.HandleFunc("/audio/cleanup", h.CleanupAudio).Methods("DELETE")
	return r
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("check", name).Msg("Health check failed")
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":    overall,
		"checks":    results,
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
