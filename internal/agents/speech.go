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

const pauseMarker = "[pause]"

var (
	emphasisStripper = strings.NewReplacer("*", "", "_", "")
	dashPauser       = strings.NewReplacer("...", " "+pauseMarker+" ", "--", " "+pauseMarker+" ", "—", " "+pauseMarker+" ")
	sentencePauser   = strings.NewReplacer(". ", ". "+pauseMarker+" ", "! ", "! "+pauseMarker+" ", "? ", "? "+pauseMarker+" ")
)

// SpeechAgent turns scripts into audio with a speech generator.
type SpeechAgent struct {
	speech llm.SpeechGenerator
}

// NewSpeechAgent returns a SpeechAgent.
func NewSpeechAgent(speech llm.SpeechGenerator) *SpeechAgent {
	return &SpeechAgent{speech: speech}
}

// Synthesize validates voice, normalizes script, enforces the input bounds and
// returns the encoded audio. format defaults to mp3.
func (a *SpeechAgent) Synthesize(ctx context.Context, script string, voice models.Voice, format string) ([]byte, error) {
	if !voice.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVoice, voice)
	}
	if format == "" {
		format = "mp3"
	}

	text := Normalize(script)
	switch n := utf8.RuneCountInString(text); {
	case n > MaxSpeechLength:
		return nil, fmt.Errorf("%w: %d characters, maximum %d", ErrScriptTooLong, n, MaxSpeechLength)
	case n < MinSpeechLength:
		return nil, fmt.Errorf("%w: %d characters, minimum %d", ErrScriptTooShort, n, MinSpeechLength)
	}

	audio, err := a.speech.Synthesize(ctx, llm.SpeechRequest{Text: text, Voice: string(voice), Format: format})
	if err != nil {
		return nil, fmt.Errorf("speech generation: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptySynthesisResult
	}

	log.Info().
		Str("voice", string(voice)).
		Str("format", format).
		Int("input_chars", utf8.RuneCountInString(text)).
		Int("audio_size_bytes", len(audio)).
		Msg("Speech synthesis complete")

	return audio, nil
}

// Normalize prepares a script for spoken delivery: emphasis markers are
// stripped, whitespace runs collapse to one space, and a pause marker follows
// ellipses, dashes and sentence-ending punctuation. Adjacent markers merge.
func Normalize(script string) string {
	s := emphasisStripper.Replace(script)
	s = strings.Join(strings.Fields(s), " ")
	s = dashPauser.Replace(s)
	s = sentencePauser.Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	double := pauseMarker + " " + pauseMarker
	for strings.Contains(s, double) {
		s = strings.ReplaceAll(s, double, pauseMarker)
	}
	return strings.TrimSpace(s)
}
