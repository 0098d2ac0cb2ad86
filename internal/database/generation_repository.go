package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/podcasts/internal/models"
)

// ErrGenerationNotFound is returned when no history row has the requested id.
var ErrGenerationNotFound = errors.New("generation not found")

const generationColumns = `id, topic, tone, voice, duration_minutes, status,
	audio_file, duration_seconds, error_message, created_at, finished_at`

// GenerationRepository handles generation history operations.
type GenerationRepository struct {
	db *DB
}

// NewGenerationRepository creates a new generation repository.
func NewGenerationRepository(db *DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Create inserts a new history row.
func (r *GenerationRepository) Create(ctx context.Context, g *models.Generation) error {
	query := `
		INSERT INTO generations (id, topic, tone, voice, duration_minutes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.Topic, string(g.Tone), string(g.Voice), g.DurationMinutes, g.Status, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create generation: %w", err)
	}
	return nil
}

// MarkRunning moves a generation to running and stamps started_at.
func (r *GenerationRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE generations SET status = $2, started_at = $3 WHERE id = $1`,
		id, models.GenerationRunning, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark generation running: %w", err)
	}
	return requireRow(res)
}

// Finish stores the outcome of a run. Empty audioFile or errMsg are stored as NULL.
func (r *GenerationRepository) Finish(ctx context.Context, id uuid.UUID, resp models.PodcastResponse) error {
	status := models.GenerationFailed
	if resp.Success {
		status = models.GenerationSucceeded
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE generations
		SET status = $2, audio_file = $3, duration_seconds = $4, error_message = $5, finished_at = $6
		WHERE id = $1
	`, id, status, nullString(resp.AudioFile), resp.DurationSeconds, nullString(resp.ErrorMessage), time.Now())
	if err != nil {
		return fmt.Errorf("failed to finish generation: %w", err)
	}
	return requireRow(res)
}

// GetByID retrieves a generation by id.
func (r *GenerationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+generationColumns+` FROM generations WHERE id = $1`, id)
	g, err := scanGeneration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return g, nil
}

// ListRecent returns up to limit generations, newest first.
func (r *GenerationRepository) ListRecent(ctx context.Context, limit int) ([]*models.Generation, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+generationColumns+` FROM generations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var out []*models.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(s scanner) (*models.Generation, error) {
	var (
		g          models.Generation
		tone       string
		voice      string
		audioFile  sql.NullString
		duration   sql.NullFloat64
		errMsg     sql.NullString
		finishedAt sql.NullTime
	)
	err := s.Scan(
		&g.ID, &g.Topic, &tone, &voice, &g.DurationMinutes, &g.Status,
		&audioFile, &duration, &errMsg, &g.CreatedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Tone = models.Tone(tone)
	g.Voice = models.Voice(voice)
	if audioFile.Valid {
		g.AudioFile = &audioFile.String
	}
	if duration.Valid {
		g.DurationSeconds = &duration.Float64
	}
	if errMsg.Valid {
		g.ErrorMessage = &errMsg.String
	}
	if finishedAt.Valid {
		g.FinishedAt = &finishedAt.Time
	}
	return &g, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrGenerationNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
