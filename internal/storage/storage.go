// Package storage persists generated audio on the local filesystem, an
// S3-compatible bucket or a NATS JetStream object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/snappy-loop/podcasts/internal/config"
	"github.com/snappy-loop/podcasts/internal/models"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("storage: object not found")

// Object is an opened stored file. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store is a flat keyed byte store for audio files.
type Store interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (*Object, error)
	Info(ctx context.Context) (models.StorageInfo, error)
	// Cleanup removes objects older than maxAge and returns how many were deleted.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// NewFromConfig opens the backend selected by cfg.StorageBackend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Store(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURL)
	case "nats":
		return NewNATSStore(cfg.NATSURL, cfg.NATSAudioBucket)
	case "filesystem", "":
		return NewFileStore(cfg.AudioOutputDir)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.StorageBackend)
	}
}

// ContentType returns the MIME type for an audio format or file extension.
func ContentType(format string) string {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "mp3":
		return "audio/mpeg"
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

func bytesToMB(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}
