package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/models"
)

// NATSStore keeps audio in a JetStream object store bucket.
type NATSStore struct {
	conn   *nats.Conn
	bucket string
	store  nats.ObjectStore
}

// NewNATSStore connects to url and binds (or creates) bucket.
func NewNATSStore(url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url, nats.Name("podcasts-audio"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	store, err := newNATSStore(conn, bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

func newNATSStore(conn *nats.Conn, bucket string) (*NATSStore, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := js.ObjectStore(bucket)
	if err != nil {
		store, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "Generated podcast audio",
			Storage:     nats.FileStorage,
			Replicas:    1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
		}
	}

	log.Info().
		Str("url", conn.ConnectedUrl()).
		Str("bucket", bucket).
		Msg("NATS object storage initialized")

	return &NATSStore{conn: conn, bucket: bucket, store: store}, nil
}

// Write saves data under key with its content type as a header.
func (n *NATSStore) Write(_ context.Context, key string, data []byte, contentType string) error {
	meta := &nats.ObjectMeta{Name: key, Headers: nats.Header{}}
	if contentType != "" {
		meta.Headers.Set("Content-Type", contentType)
	}
	if _, err := n.store.Put(meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	log.Debug().Str("bucket", n.bucket).Str("key", key).Int("size", len(data)).Msg("Audio written to NATS")
	return nil
}

// Open streams an object.
func (n *NATSStore) Open(_ context.Context, key string) (*Object, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}
	info, err := obj.Info()
	if err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to read object info '%s': %w", key, err)
	}
	return &Object{
		Body:        obj,
		Size:        int64(info.Size),
		ContentType: info.Headers.Get("Content-Type"),
		ModTime:     info.ModTime,
	}, nil
}

// Info sums object sizes in the bucket.
func (n *NATSStore) Info(_ context.Context) (models.StorageInfo, error) {
	info := models.StorageInfo{Location: "nats://" + n.bucket}
	objects, err := n.list()
	if err != nil {
		return info, err
	}
	var total int64
	for _, o := range objects {
		info.TotalFiles++
		total += int64(o.Size)
	}
	info.TotalSizeMB = bytesToMB(total)
	return info, nil
}

// Cleanup deletes objects whose modification time is older than maxAge.
func (n *NATSStore) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	objects, err := n.list()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, o := range objects {
		if !o.ModTime.Before(cutoff) {
			continue
		}
		if err := n.store.Delete(o.Name); err != nil {
			log.Warn().Err(err).Str("key", o.Name).Msg("Failed to delete old audio object")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Ping reports an error when the connection is not usable.
func (n *NATSStore) Ping(_ context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats connection status: %s", n.conn.Status())
	}
	_, err := n.store.Status()
	return err
}

// Close closes the NATS connection.
func (n *NATSStore) Close() error {
	n.conn.Close()
	return nil
}

func (n *NATSStore) list() ([]*nats.ObjectInfo, error) {
	objects, err := n.store.List()
	if errors.Is(err, nats.ErrNoObjectsFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket '%s': %w", n.bucket, err)
	}
	return objects, nil
}
