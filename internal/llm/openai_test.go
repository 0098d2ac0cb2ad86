package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snappy-loop/podcasts/internal/config"
)

func newOpenAIServer(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		bodies = append(bodies, body)

		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  A fine script.  "}}]}`)
		case strings.HasSuffix(r.URL.Path, "/audio/speech"):
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3-fake-mp3"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestOpenAI_Complete(t *testing.T) {
	srv, bodies := newOpenAIServer(t)
	client, err := NewOpenAI("sk-test", srv.URL+"/v1/", "gpt-4", "tts-1-hd")
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	got, err := client.Complete(context.Background(), Prompt{System: "sys", User: "Create a podcast script about: bees", Temperature: 0.7, TopP: 0.9})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "  A fine script.  " {
		t.Errorf("Complete = %q", got)
	}

	if len(*bodies) != 1 {
		t.Fatalf("requests = %d", len(*bodies))
	}
	body := (*bodies)[0]
	if body["model"] != "gpt-4" || body["temperature"] != 0.7 || body["top_p"] != 0.9 {
		t.Errorf("request body = %v", body)
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", body["messages"])
	}
	if m := msgs[1].(map[string]any); m["role"] != "user" || m["content"] != "Create a podcast script about: bees" {
		t.Errorf("user message = %v", m)
	}
}

func TestOpenAI_Synthesize(t *testing.T) {
	srv, bodies := newOpenAIServer(t)
	client, err := NewOpenAI("sk-test", srv.URL+"/v1/", "", "")
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	audio, err := client.Synthesize(context.Background(), SpeechRequest{Text: "Hello there.", Voice: "nova", Format: "opus"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3-fake-mp3" {
		t.Errorf("audio = %q", audio)
	}
	body := (*bodies)[0]
	if body["model"] != "tts-1-hd" || body["voice"] != "nova" || body["response_format"] != "opus" || body["input"] != "Hello there." {
		t.Errorf("request body = %v", body)
	}
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAI("sk-test", srv.URL+"/v1/", "", "")
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	if _, err := client.Complete(context.Background(), Prompt{System: "s", User: "u"}); err == nil {
		t.Error("expected error from failing server")
	}
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	for _, key := range []string{"", "   ", "your_openai_api_key_here"} {
		_, err := NewOpenAI(key, "", "", "")
		if !errors.Is(err, ErrConfigurationMissing) {
			t.Errorf("NewOpenAI(%q) err = %v, want ErrConfigurationMissing", key, err)
		}
	}
}

func TestNewFromConfig_MissingKeys(t *testing.T) {
	cfg := &config.Config{TextProvider: "openai", SpeechProvider: "gemini"}
	text, speech, err := NewFromConfig(context.Background(), cfg)
	if text != nil || speech != nil {
		t.Errorf("expected no generators, got %v / %v", text, speech)
	}
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Errorf("err = %v, want ErrConfigurationMissing", err)
	}
}

func TestEndpointRoundTripper(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
	}))
	defer srv.Close()

	client := httpClientForEndpoint(srv.URL + "/gemini/")
	if client == nil {
		t.Fatal("expected client")
	}
	resp, err := client.Get("https://generativelanguage.googleapis.com/v1beta/models/x:generateContent?alt=sse")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if gotPath != "/gemini/v1beta/models/x:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "alt=sse" {
		t.Errorf("query = %q", gotQuery)
	}

	if httpClientForEndpoint("::not a url") != nil {
		t.Error("expected nil client for invalid endpoint")
	}
}
