package llm

import (
	"encoding/binary"
	"testing"
)

func TestParseAudioMimeType(t *testing.T) {
	tests := []struct {
		mime     string
		wantBits int
		wantRate int
	}{
		{"audio/L16;codec=pcm;rate=24000", 16, 24000},
		{"audio/L24; rate=48000", 24, 48000},
		{"audio/L8", 8, 24000},
		{"", 16, 24000},
		{"audio/L16;rate=abc", 16, 24000},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got := parseAudioMimeType(tt.mime)
			if got.bitsPerSample != tt.wantBits || got.rate != tt.wantRate {
				t.Errorf("parseAudioMimeType(%q) = %+v, want bits=%d rate=%d", tt.mime, got, tt.wantBits, tt.wantRate)
			}
		})
	}
}

func TestConvertToWAV(t *testing.T) {
	pcm := make([]byte, 480)
	wav := convertToWAV(pcm, "audio/L16;codec=pcm;rate=24000")

	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("bad header: %q", wav[:44])
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("chunk size = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 24000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 48000 {
		t.Errorf("byte rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d", got)
	}
}

func TestGeminiVoice(t *testing.T) {
	if got := GeminiVoice("nova"); got != "Aoede" {
		t.Errorf("GeminiVoice(nova) = %q", got)
	}
	if got := GeminiVoice("mercury"); got != "Zephyr" {
		t.Errorf("GeminiVoice(mercury) = %q, want fable fallback", got)
	}
}
