package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/llm"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/snappy-loop/podcasts/internal/services"
	"github.com/snappy-loop/podcasts/internal/storage"
)

const maxRequestBody = 64 << 10

// GeneratePodcast handles POST /v1/podcasts
func (h *Handler) GeneratePodcast(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !resp.Success {
		writeJSONError(w, http.StatusInternalServerError, resp.ErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// EnqueuePodcast handles POST /v1/podcasts/jobs
func (h *Handler) EnqueuePodcast(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.Enqueue(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// GetPodcastJob handles GET /v1/podcasts/jobs/{id}
func (h *Handler) GetPodcastJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid generation id")
		return
	}

	gen, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

// ListPodcasts handles GET /v1/podcasts
func (h *Handler) ListPodcasts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			limit = parsed
		}
	}

	gens, err := h.svc.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if gens == nil {
		gens = []*models.Generation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"podcasts": gens,
	})
}

// DownloadAudio handles GET /v1/download/{filename}
func (h *Handler) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]

	obj, err := h.svc.OpenAudio(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Audio file not found")
			return
		}
		log.Error().Err(err).Str("file", name).Msg("Failed to open audio file")
		writeJSONError(w, http.StatusInternalServerError, "failed to open audio file")
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Audio download interrupted")
	}
}

// ListVoices handles GET /v1/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"voices": h.svc.Voices(),
	})
}

// ListTones handles GET /v1/tones
func (h *Handler) ListTones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tones": h.svc.Tones(),
	})
}

// MemoryStats handles GET /v1/memory/stats
func (h *Handler) MemoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get memory stats")
		writeJSONError(w, http.StatusInternalServerError, "failed to get memory stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ClearMemory handles DELETE /v1/memory/clear
func (h *Handler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearMemory()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Memory cleared successfully",
	})
}

// CleanupAudio handles DELETE /v1/audio/cleanup
func (h *Handler) CleanupAudio(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.CleanupAudio(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to clean up audio files")
		writeJSONError(w, http.StatusInternalServerError, "failed to clean up audio files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Old audio files cleaned up successfully",
		"deleted_files": n,
	})
}

// writeServiceError maps service errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrGenerationNotFound):
		writeJSONError(w, http.StatusNotFound, "generation not found")
	case errors.Is(err, llm.ErrConfigurationMissing),
		errors.Is(err, services.ErrQueueUnavailable),
		errors.Is(err, services.ErrHistoryUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
