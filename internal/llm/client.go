package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/config"
)

// ErrConfigurationMissing is returned when a provider has no usable API key.
var ErrConfigurationMissing = errors.New("API key not configured")

// placeholderAPIKey is the value shipped in example .env files.
const placeholderAPIKey = "your_openai_api_key_here"

// maxResponseLogBytes is the max length of a provider response to log in full (to avoid huge logs).
const maxResponseLogBytes = 8192

// Prompt is one chat-style text generation request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	TopP        float64
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// SpeechRequest is one text-to-speech request.
type SpeechRequest struct {
	Text   string
	Voice  string
	Format string
}

// SpeechGenerator converts text to encoded audio bytes.
type SpeechGenerator interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// NewFromConfig builds the text and speech generators selected by cfg.
// Either result may be nil together with an error wrapping ErrConfigurationMissing.
func NewFromConfig(ctx context.Context, cfg *config.Config) (TextGenerator, SpeechGenerator, error) {
	var errs []error

	var text TextGenerator
	switch cfg.TextProvider {
	case "gemini":
		g, err := NewGeminiText(ctx, cfg.GeminiAPIKey, cfg.GeminiModelScript, cfg.GeminiAPIEndpoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("text provider gemini: %w", err))
		} else {
			text = g
		}
	default:
		o, err := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModelScript, cfg.OpenAIModelTTS)
		if err != nil {
			errs = append(errs, fmt.Errorf("text provider openai: %w", err))
		} else {
			text = o
		}
	}

	var speech SpeechGenerator
	switch cfg.SpeechProvider {
	case "gemini":
		g, err := NewGeminiSpeech(ctx, cfg.GeminiAPIKey, cfg.GeminiModelTTS, cfg.GeminiAPIEndpoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("speech provider gemini: %w", err))
		} else {
			speech = g
		}
	default:
		o, err := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModelScript, cfg.OpenAIModelTTS)
		if err != nil {
			errs = append(errs, fmt.Errorf("speech provider openai: %w", err))
		} else {
			speech = o
		}
	}

	log.Info().
		Str("text_provider", cfg.TextProvider).
		Str("speech_provider", cfg.SpeechProvider).
		Bool("text_ready", text != nil).
		Bool("speech_ready", speech != nil).
		Msg("LLM providers initialized")

	return text, speech, errors.Join(errs...)
}

func validAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholderAPIKey
}

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint (e.g. http://host.docker.internal:31300/gemini).
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.URL.Path = path.Join(e.base.Path, strings.TrimPrefix(req.URL.Path, "/"))
	req2.Host = ""
	if req.URL.RawQuery != "" {
		req2.URL.RawQuery = req.URL.RawQuery
	}
	return e.next.RoundTrip(req2)
}

// logResponse logs provider response text, truncating if over maxResponseLogBytes.
func logResponse(provider, caller, raw string) {
	if len(raw) <= maxResponseLogBytes {
		log.Debug().Str("provider", provider).Str("caller", caller).Str("response", raw).Msg("LLM response")
		return
	}
	log.Debug().
		Str("provider", provider).
		Str("caller", caller).
		Str("response", raw[:maxResponseLogBytes]+"... [truncated]").
		Int("response_len", len(raw)).
		Msg("LLM response")
}
