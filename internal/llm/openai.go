package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// OpenAI implements TextGenerator (chat completions) and SpeechGenerator
// (audio speech) with the official openai-go SDK.
type OpenAI struct {
	client      openai.Client
	modelScript string
	modelTTS    string
}

// NewOpenAI creates an OpenAI client. baseURL is optional.
func NewOpenAI(apiKey, baseURL, modelScript, modelTTS string) (*OpenAI, error) {
	if !validAPIKey(apiKey) {
		return nil, fmt.Errorf("OPENAI_API_KEY: %w", ErrConfigurationMissing)
	}
	if modelScript == "" {
		modelScript = "gpt-4"
	}
	if modelTTS == "" {
		modelTTS = "tts-1-hd"
	}

	// one attempt per call; the pipeline never retries a step
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	log.Info().
		Str("model_script", modelScript).
		Str("model_tts", modelTTS).
		Str("base_url", baseURL).
		Msg("OpenAI client initialized")

	return &OpenAI{
		client:      openai.NewClient(opts...),
		modelScript: modelScript,
		modelTTS:    modelTTS,
	}, nil
}

// Complete runs one chat completion.
func (o *OpenAI) Complete(ctx context.Context, prompt Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.modelScript),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	}
	if prompt.Temperature > 0 {
		params.Temperature = openai.Float(prompt.Temperature)
	}
	if prompt.TopP > 0 {
		params.TopP = openai.Float(prompt.TopP)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	content := resp.Choices[0].Message.Content
	logResponse("openai", "Complete", content)
	return content, nil
}

// Synthesize runs one speech request and returns the encoded audio.
func (o *OpenAI) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	format := req.Format
	if format == "" {
		format = "mp3"
	}

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          openai.SpeechModel(o.modelTTS),
		Voice:          openai.AudioSpeechNewParamsVoice(req.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}

	log.Debug().
		Str("caller", "Synthesize").
		Str("voice", req.Voice).
		Str("format", format).
		Int("audio_size_bytes", len(data)).
		Msg("OpenAI speech generated")

	return data, nil
}
