package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GeminiText implements TextGenerator through langchaingo's Google AI model.
type GeminiText struct {
	model string
	llm   llms.Model
}

// NewGeminiText creates a Gemini text generator.
// apiEndpoint: optional Gemini API base URL; when set, all calls use this endpoint.
func NewGeminiText(ctx context.Context, apiKey, model, apiEndpoint string) (*GeminiText, error) {
	if !validAPIKey(apiKey) {
		return nil, fmt.Errorf("GEMINI_API_KEY: %w", ErrConfigurationMissing)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	opts := []googleai.Option{googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model)}
	var httpClient *http.Client
	if apiEndpoint != "" {
		httpClient = httpClientForEndpoint(apiEndpoint)
	}
	if httpClient != nil {
		opts = append(opts, googleai.WithHTTPClient(httpClient))
	}

	m, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini model: %w", err)
	}

	log.Info().
		Str("model", model).
		Str("api_endpoint", apiEndpoint).
		Msg("Gemini text client initialized")

	return &GeminiText{model: model, llm: m}, nil
}

// Complete sends the system and user messages and returns the first choice.
func (g *GeminiText) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: prompt.System}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: prompt.User}}},
	}
	var opts []llms.CallOption
	if prompt.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(prompt.Temperature))
	}
	if prompt.TopP > 0 {
		opts = append(opts, llms.WithTopP(prompt.TopP))
	}

	resp, err := g.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("gemini: empty choices")
	}
	content := resp.Choices[0].Content
	logResponse("gemini", "Complete", content)
	return content, nil
}
