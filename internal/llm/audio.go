package llm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	unifiedgenai "google.golang.org/genai"
)

// geminiVoices maps the public voice names onto Gemini prebuilt voices.
var geminiVoices = map[string]string{
	"alloy":   "Kore",
	"echo":    "Puck",
	"fable":   "Zephyr",
	"onyx":    "Charon",
	"nova":    "Aoede",
	"shimmer": "Leda",
}

var pcmBitsPattern = regexp.MustCompile(`audio/L(\d+)`)

// GeminiSpeech implements SpeechGenerator with the unified genai SDK and
// response_modalities: ["audio"]. Output is always WAV.
type GeminiSpeech struct {
	model  string
	client *unifiedgenai.Client
}

// NewGeminiSpeech creates a Gemini TTS client.
func NewGeminiSpeech(ctx context.Context, apiKey, model, apiEndpoint string) (*GeminiSpeech, error) {
	if !validAPIKey(apiKey) {
		return nil, fmt.Errorf("GEMINI_API_KEY: %w", ErrConfigurationMissing)
	}
	if model == "" {
		model = "gemini-2.5-pro-preview-tts"
	}

	cfg := &unifiedgenai.ClientConfig{APIKey: apiKey, Backend: unifiedgenai.BackendGeminiAPI}
	if apiEndpoint != "" {
		cfg.HTTPOptions = unifiedgenai.HTTPOptions{BaseURL: apiEndpoint}
	}
	client, err := unifiedgenai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize unified genai client for TTS: %w", err)
	}

	log.Info().
		Str("model_tts", model).
		Str("api_endpoint", apiEndpoint).
		Msg("Gemini speech client initialized")

	return &GeminiSpeech{model: model, client: client}, nil
}

// GeminiVoice returns the prebuilt Gemini voice for a public voice name.
func GeminiVoice(voice string) string {
	if v, ok := geminiVoices[voice]; ok {
		return v
	}
	return geminiVoices["fable"]
}

// Synthesize streams TTS output and returns it as WAV. req.Format is ignored.
func (g *GeminiSpeech) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	voiceName := GeminiVoice(req.Voice)

	contents := []*unifiedgenai.Content{
		{
			Role:  "user",
			Parts: []*unifiedgenai.Part{unifiedgenai.NewPartFromText(req.Text)},
		},
	}

	temp := float32(1.0)
	config := &unifiedgenai.GenerateContentConfig{
		Temperature:        &temp,
		ResponseModalities: []string{"audio"},
		SpeechConfig: &unifiedgenai.SpeechConfig{
			VoiceConfig: &unifiedgenai.VoiceConfig{
				PrebuiltVoiceConfig: &unifiedgenai.PrebuiltVoiceConfig{
					VoiceName: voiceName,
				},
			},
		},
	}

	log.Debug().
		Str("model", g.model).
		Str("voice", voiceName).
		Msg("Calling unified genai TTS GenerateContentStream")

	var audioBuffer bytes.Buffer
	var lastMimeType string
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return nil, fmt.Errorf("TTS stream error: %w", err)
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		cand := resp.Candidates[0]
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				audioBuffer.Write(part.InlineData.Data)
				if part.InlineData.MIMEType != "" {
					lastMimeType = part.InlineData.MIMEType
				}
			}
		}
	}

	if audioBuffer.Len() == 0 {
		return nil, errors.New("TTS returned no audio data")
	}

	audio := audioBuffer.Bytes()
	if lastMimeType == "" || strings.HasPrefix(lastMimeType, "audio/L") {
		audio = convertToWAV(audio, lastMimeType)
	}

	log.Debug().
		Str("caller", "Synthesize").
		Int("audio_size_bytes", len(audio)).
		Str("voice", voiceName).
		Str("mime_type", lastMimeType).
		Msg("Gemini TTS audio generated")

	return audio, nil
}

// convertToWAV wraps raw mono PCM audio in a RIFF/WAVE header.
func convertToWAV(audioData []byte, mimeType string) []byte {
	params := parseAudioMimeType(mimeType)
	numChannels := 1
	dataSize := len(audioData)
	blockAlign := numChannels * params.bitsPerSample / 8
	byteRate := params.rate * blockAlign

	header := new(bytes.Buffer)
	header.WriteString("RIFF")
	binary.Write(header, binary.LittleEndian, uint32(36+dataSize))
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	binary.Write(header, binary.LittleEndian, uint32(16))
	binary.Write(header, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(header, binary.LittleEndian, uint16(numChannels))
	binary.Write(header, binary.LittleEndian, uint32(params.rate))
	binary.Write(header, binary.LittleEndian, uint32(byteRate))
	binary.Write(header, binary.LittleEndian, uint16(blockAlign))
	binary.Write(header, binary.LittleEndian, uint16(params.bitsPerSample))
	header.WriteString("data")
	binary.Write(header, binary.LittleEndian, uint32(dataSize))

	return append(header.Bytes(), audioData...)
}

type audioParams struct {
	bitsPerSample int
	rate          int
}

// parseAudioMimeType reads bits per sample and rate from e.g. "audio/L16;codec=pcm;rate=24000".
func parseAudioMimeType(mimeType string) audioParams {
	params := audioParams{bitsPerSample: 16, rate: 24000}

	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(strings.ToLower(part), "rate=") {
			if rate, err := strconv.Atoi(part[len("rate="):]); err == nil {
				params.rate = rate
			}
		} else if m := pcmBitsPattern.FindStringSubmatch(part); len(m) > 1 {
			if bits, err := strconv.Atoi(m[1]); err == nil {
				params.bitsPerSample = bits
			}
		}
	}
	return params
}
