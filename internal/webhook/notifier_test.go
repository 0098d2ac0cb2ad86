package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/podcasts/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SignedDelivery(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
		gotTS   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(HeaderSignature)
		gotTS = r.Header.Get(HeaderTimestamp)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "shh")
	n.now = func() time.Time { return time.Unix(1714564800, 0) }

	ev := kafka.GenerationEvent{Type: kafka.EventPodcastCompleted, ID: uuid.New(), Topic: "Bees", AudioFile: "bees.mp3"}
	require.NoError(t, n.PublishEvent(context.Background(), ev))

	assert.Contains(t, string(gotBody), `"type":"podcast_completed"`)
	assert.Equal(t, Sign(gotBody, "shh"), gotSig)
	assert.Equal(t, "1714564800", gotTS)
}

func TestNotifier_UnsignedWithoutSecret(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(HeaderSignature)
	}))
	defer srv.Close()

	require.NoError(t, NewNotifier(srv.URL, "").PublishEvent(context.Background(), kafka.GenerationEvent{ID: uuid.New()}))
	assert.Empty(t, sig)
}

func TestNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL, "").PublishEvent(context.Background(), kafka.GenerationEvent{ID: uuid.New()})
	var de *DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusBadGateway, de.StatusCode)
	assert.Contains(t, de.Body, "nope")
}

func TestSign(t *testing.T) {
	// echo -n 'hello' | openssl dgst -sha256 -hmac key
	assert.Equal(t, "9307b3b915efb5171ff14d8cb55fbcc798c6c0ef1456d66ded1a6aa723a58b7b", Sign([]byte("hello"), "key"))
}
