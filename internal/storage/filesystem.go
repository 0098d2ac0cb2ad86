package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/models"
)

// FileStore keeps audio files in a single local directory.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath, creating it if needed.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}

	log.Info().Str("path", basePath).Msg("Filesystem storage initialized")
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	return s.basePath
}

// Write persists data under key. The content type is implied by the extension.
func (s *FileStore) Write(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("storage: write file: %w", err)
	}

	log.Debug().Str("file", key).Int("size", len(data)).Msg("Audio written to filesystem")
	return nil
}

// Open returns the file stored under key.
func (s *FileStore) Open(_ context.Context, key string) (*Object, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat file: %w", err)
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}
	return &Object{
		Body:        f,
		Size:        st.Size(),
		ContentType: ContentType(filepath.Ext(key)),
		ModTime:     st.ModTime(),
	}, nil
}

// Info reports the number and total size of stored files.
func (s *FileStore) Info(_ context.Context) (models.StorageInfo, error) {
	info := models.StorageInfo{Location: s.basePath}
	var total int64
	err := s.walk(func(_ string, fi fs.FileInfo) {
		info.TotalFiles++
		total += fi.Size()
	})
	if err != nil {
		return info, err
	}
	info.TotalSizeMB = bytesToMB(total)
	return info, nil
}

// Cleanup deletes files whose modification time is older than maxAge.
func (s *FileStore) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	err := s.walk(func(name string, fi fs.FileInfo) {
		if !fi.ModTime().Before(cutoff) {
			return
		}
		if err := os.Remove(filepath.Join(s.basePath, name)); err != nil {
			// file might be in use, skip it
			log.Warn().Err(err).Str("file", name).Msg("Failed to remove old audio file")
			return
		}
		deleted++
	})
	return deleted, err
}

// Ping checks that the base directory is still accessible.
func (s *FileStore) Ping(_ context.Context) error {
	_, err := os.Stat(s.basePath)
	return err
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) walk(fn func(name string, fi fs.FileInfo)) error {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return fmt.Errorf("storage: read dir: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		fn(e.Name(), fi)
	}
	return nil
}

func (s *FileStore) path(key string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, clean), nil
}

// sanitizeKey accepts only a bare file name so keys cannot escape the root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	if strings.Contains(key, "/") || key == "." || key == ".." {
		return "", errors.New("storage: invalid key")
	}
	return key, nil
}
