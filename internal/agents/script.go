package agents

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/llm"
	"github.com/snappy-loop/podcasts/internal/models"
)

const deliveryGuidelines = `Important guidelines:
- Write for audio consumption (not reading)
- Use natural speech patterns and conversational flow
- Include appropriate pauses and emphasis markers
- Make it engaging from the first sentence
- Ensure logical flow and clear structure
- Avoid complex jargon unless necessary
- Include audience engagement elements
- End with a strong conclusion or call to action

Return only the script text, no additional formatting or explanations.`

// ScriptAgent drafts podcast scripts with a text generator.
type ScriptAgent struct {
	text        llm.TextGenerator
	temperature float64
	topP        float64
}

// NewScriptAgent returns a ScriptAgent sampling at temperature/topP.
func NewScriptAgent(text llm.TextGenerator, temperature, topP float64) *ScriptAgent {
	return &ScriptAgent{text: text, temperature: temperature, topP: topP}
}

// Compose drafts a script about topic for roughly minutes of audio.
// prefs may be nil.
func (a *ScriptAgent) Compose(ctx context.Context, topic string, tone models.Tone, minutes int, prefs *models.AggregatePreferences) (string, error) {
	prompt := llm.Prompt{
		System:      SystemPrompt(tone, minutes, prefs),
		User:        "Create a podcast script about: " + topic,
		Temperature: a.temperature,
		TopP:        a.topP,
	}

	log.Debug().
		Str("topic", topic).
		Str("tone", string(tone)).
		Int("duration_minutes", minutes).
		Msg("Generating script")

	raw, err := a.text.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("text generation: %w", err)
	}

	script := strings.TrimSpace(raw)
	if utf8.RuneCountInString(script) < MinScriptLength {
		return "", ErrEmptyOrTooShortScript
	}

	log.Info().
		Str("topic", topic).
		Int("script_chars", utf8.RuneCountInString(script)).
		Int("script_words", len(strings.Fields(script))).
		Msg("Script generation complete")

	return script, nil
}

// SystemPrompt builds the system prompt for a script request.
func SystemPrompt(tone models.Tone, minutes int, prefs *models.AggregatePreferences) string {
	var b strings.Builder
	b.WriteString("You are an expert podcast script writer. Your task is to create engaging, high-quality podcast scripts that are ready for text-to-speech conversion.\n\n")
	b.WriteString(ToneInstructions(tone))
	b.WriteString("\n\n")
	b.WriteString(scriptTemplate(minutes))
	b.WriteString("\n\n")
	if note := preferenceNote(tone, prefs); note != "" {
		b.WriteString(note)
		b.WriteString("\n\n")
	}
	b.WriteString(deliveryGuidelines)
	return b.String()
}

func scriptTemplate(minutes int) string {
	targetWords := minutes * WordsPerMinute
	return fmt.Sprintf(`Create a podcast script that is approximately %d words long (targeting %d minutes of audio).

Structure the script with:
1. Engaging introduction (hook the listener in 30 seconds)
2. Main content (3-4 key points with examples)
3. Conclusion (summarize and call to action)

Include natural speech patterns:
- Use contractions (you're, we're, it's)
- Include filler words and pauses naturally
- Vary sentence length for rhythm
- Add emphasis markers where needed
- Include audience engagement phrases`, targetWords, minutes)
}

func preferenceNote(tone models.Tone, prefs *models.AggregatePreferences) string {
	if prefs == nil || prefs.PreferredTone == "" || prefs.PreferredTone == tone {
		return ""
	}
	return fmt.Sprintf(`Note: The user typically prefers %s tone, but has requested %s for this episode.
Adapt the style accordingly while maintaining the requested tone.`, prefs.PreferredTone, tone)
}
