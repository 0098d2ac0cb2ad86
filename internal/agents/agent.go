// Package agents drafts podcast scripts and turns them into speech on top of
// the llm capabilities.
package agents

import (
	"errors"
	"strings"
)

var (
	ErrEmptyOrTooShortScript = errors.New("generated script is too short or empty")
	ErrInvalidVoice          = errors.New("invalid voice")
	ErrScriptTooLong         = errors.New("script is too long for TTS")
	ErrScriptTooShort        = errors.New("script is too short for TTS")
	ErrEmptySynthesisResult  = errors.New("no audio data received from TTS service")
)

const (
	// WordsPerMinute is the assumed average speaking rate.
	WordsPerMinute = 155

	MinScriptLength = 100
	MaxSpeechLength = 4096
	MinSpeechLength = 10
)

// EstimateDuration estimates spoken duration in seconds from the word count.
func EstimateDuration(script string) float64 {
	words := len(strings.Fields(script))
	return float64(words) / WordsPerMinute * 60
}
