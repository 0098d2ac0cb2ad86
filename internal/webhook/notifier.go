// Package webhook posts generation outcome events to a configured URL.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/kafka"
)

// Headers sent with every delivery.
const (
	HeaderTimestamp = "X-Podcasts-Timestamp"
	HeaderSignature = "X-Podcasts-Signature"
)

// DeliveryError wraps a non-2xx webhook response.
type DeliveryError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// Notifier delivers each event once; failed deliveries are logged by the caller.
type Notifier struct {
	url        string
	secret     string
	httpClient *http.Client
	now        func() time.Time
}

// NewNotifier creates a notifier posting to url. A non-empty secret adds an
// HMAC-SHA256 signature of the body.
func NewNotifier(url, secret string) *Notifier {
	log.Info().Str("url", url).Bool("signed", secret != "").Msg("Webhook notifier initialized")
	return &Notifier{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// PublishEvent implements processor.EventPublisher.
func (n *Notifier) PublishEvent(ctx context.Context, event kafka.GenerationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Podcasts-Webhook/1.0")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(n.now().Unix(), 10))
	if n.secret != "" {
		req.Header.Set(HeaderSignature, Sign(body, n.secret))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook returned status %d", resp.StatusCode),
			Body:       string(respBody),
		}
	}

	log.Info().
		Str("generation_id", event.ID.String()).
		Str("event", event.Type).
		Msg("Webhook delivered")
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload keyed by secret.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
