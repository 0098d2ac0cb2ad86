package processor

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/snappy-loop/podcasts/internal/models"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    Stage
		success bool
		want    Stage
	}{
		{StageFetchPreferences, true, StageGenerateScript},
		{StageFetchPreferences, false, StageGenerateScript},
		{StageGenerateScript, true, StageGenerateAudio},
		{StageGenerateScript, false, StageHandleError},
		{StageGenerateAudio, true, StagePersistAudio},
		{StageGenerateAudio, false, StageHandleError},
		{StagePersistAudio, true, StageRecordOutcome},
		{StagePersistAudio, false, StageHandleError},
		{StageRecordOutcome, true, StageDone},
		{StageRecordOutcome, false, StageDone},
		{StageHandleError, false, StageDone},
		{StageDone, true, StageDone},
	}
	for _, tt := range tests {
		if got := Next(tt.from, tt.success); got != tt.want {
			t.Errorf("Next(%s, %v) = %s, want %s", tt.from, tt.success, got, tt.want)
		}
	}
}

func TestStageString(t *testing.T) {
	if got := StagePersistAudio.String(); got != "persist_audio" {
		t.Errorf("String() = %q", got)
	}
	if got := Stage(42).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}

func TestAudioFileName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name   string
		topic  string
		voice  models.Voice
		format string
		want   string
	}{
		{"punctuation stripped", "Hello, World! 2024", models.VoiceNova, "mp3", "hello-world-2024_nova_20240309_140507.mp3"},
		{"hyphen and space runs", "a  -- b\t\tc", models.VoiceEcho, "mp3", "a-b-c_echo_20240309_140507.mp3"},
		{"underscore kept", "snake_case topic", models.VoiceAlloy, "mp3", "snake_case-topic_alloy_20240309_140507.mp3"},
		{"unicode letters kept", "Café Économie", models.VoiceFable, "mp3", "café-économie_fable_20240309_140507.mp3"},
		{"format extension", "Bees", models.VoiceOnyx, "wav", "bees_onyx_20240309_140507.wav"},
		{"default format", "Bees", models.VoiceOnyx, "", "bees_onyx_20240309_140507.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AudioFileName(tt.topic, tt.voice, ts, tt.format); got != tt.want {
				t.Errorf("AudioFileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAudioFileName_Truncates(t *testing.T) {
	topic := strings.Repeat("long topic ", 20)
	got := AudioFileName(topic, models.VoiceNova, time.Now(), "mp3")

	slug := strings.SplitN(got, "_nova_", 2)[0]
	if n := len([]rune(slug)); n != 50 {
		t.Errorf("slug length = %d, want 50 (%q)", n, slug)
	}
	if !regexp.MustCompile(`^[a-z-]+_nova_\d{8}_\d{6}\.mp3$`).MatchString(got) {
		t.Errorf("unexpected name %q", got)
	}
}
