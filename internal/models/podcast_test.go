package models

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerationRequest_NormalizeDefaults(t *testing.T) {
	got, err := GenerationRequest{Topic: "  The history of tea \n"}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := GenerationRequest{
		Topic:           "The history of tea",
		Tone:            ToneConversational,
		Voice:           VoiceFable,
		DurationMinutes: 5,
	}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestGenerationRequest_NormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		req  GenerationRequest
		want string
	}{
		{"blank topic", GenerationRequest{Topic: "   "}, "topic cannot be empty"},
		{"long topic", GenerationRequest{Topic: strings.Repeat("é", 501)}, "at most 500 characters"},
		{"bad tone", GenerationRequest{Topic: "x", Tone: "angry"}, `invalid tone "angry"`},
		{"bad voice", GenerationRequest{Topic: "x", Voice: "mercury"}, `invalid voice "mercury"`},
		{"too short", GenerationRequest{Topic: "x", DurationMinutes: -1}, "between 1 and 30"},
		{"too long", GenerationRequest{Topic: "x", DurationMinutes: 31}, "between 1 and 30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Normalize()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error %v does not wrap ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestGenerationRequest_NormalizeBoundaries(t *testing.T) {
	for _, minutes := range []int{1, 30} {
		if _, err := (GenerationRequest{Topic: strings.Repeat("a", 500), DurationMinutes: minutes}).Normalize(); err != nil {
			t.Errorf("minutes=%d: unexpected error %v", minutes, err)
		}
	}
}

func TestGeneration_Request(t *testing.T) {
	req := GenerationRequest{Topic: "Bees", Tone: ToneCasual, Voice: VoiceOnyx, DurationMinutes: 2}
	g := NewGeneration(req)
	if g.Status != GenerationQueued {
		t.Errorf("Status = %q", g.Status)
	}
	if g.Request() != req {
		t.Errorf("Request() = %+v, want %+v", g.Request(), req)
	}
}
