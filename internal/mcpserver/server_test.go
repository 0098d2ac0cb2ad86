package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snappy-loop/podcasts/internal/auth"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	got models.GenerationRequest
}

func (f *fakeService) Generate(_ context.Context, req models.GenerationRequest) (models.PodcastResponse, error) {
	f.got = req
	if req.Topic == "" {
		return models.PodcastResponse{}, fmt.Errorf("%w: topic cannot be empty", models.ErrValidation)
	}
	if req.Topic == "fail" {
		return models.PodcastResponse{ErrorMessage: "failed to generate audio: boom", Topic: req.Topic}, nil
	}
	return models.PodcastResponse{Success: true, AudioFile: "bees_nova_20240501_120000.mp3", Topic: req.Topic, VoiceUsed: req.Voice}, nil
}

func (f *fakeService) Stats(context.Context) (*models.MemoryStats, error) {
	return &models.MemoryStats{MemoryEntries: 4}, nil
}

func (f *fakeService) Voices() []models.VoiceInfo {
	return []models.VoiceInfo{{ID: models.VoiceNova, Name: "Nova"}}
}

func (f *fakeService) Tones() []models.ToneInfo {
	return []models.ToneInfo{{ID: models.ToneCasual, Name: "Casual"}}
}

func call(t *testing.T, h http.Handler, body string) jsonRPCResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp jsonRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func toolResult(t *testing.T, resp jsonRPCResponse) toolsCallResult {
	t.Helper()
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var out toolsCallResult
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotEmpty(t, out.Content)
	return out
}

func TestToolsList(t *testing.T) {
	h := NewServer(&fakeService{}).Handler()
	resp := call(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	raw, _ := json.Marshal(resp.Result)
	var list toolsListResult
	require.NoError(t, json.Unmarshal(raw, &list))

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"generate_podcast", "list_voices", "list_tones", "preference_stats"}, names)
	assert.Equal(t, []string{"topic"}, list.Tools[0].InputSchema.Required)
	assert.Len(t, list.Tools[0].InputSchema.Properties["voice"].Enum, len(models.Voices))
}

func TestInitialize(t *testing.T) {
	resp := call(t, NewServer(&fakeService{}).Handler(), `{"jsonrpc":"2.0","id":"a","method":"initialize","params":{}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "a", resp.ID)
	assert.Contains(t, fmt.Sprint(resp.Result), protocolVersion)
}

func TestGeneratePodcastTool(t *testing.T) {
	svc := &fakeService{}
	h := NewServer(svc).Handler()

	out := toolResult(t, call(t, h, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"generate_podcast","arguments":{"topic":"Bees","voice":"nova","duration_minutes":3}}}`))
	assert.False(t, out.IsError)
	assert.Contains(t, out.Content[0].Text, "bees_nova_20240501_120000.mp3")
	assert.Equal(t, models.GenerationRequest{Topic: "Bees", Voice: models.VoiceNova, DurationMinutes: 3}, svc.got)

	out = toolResult(t, call(t, h, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"generate_podcast","arguments":{}}}`))
	assert.True(t, out.IsError)
	assert.Contains(t, out.Content[0].Text, "topic cannot be empty")

	out = toolResult(t, call(t, h, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"generate_podcast","arguments":{"topic":"fail"}}}`))
	assert.True(t, out.IsError)
	assert.Contains(t, out.Content[0].Text, "failed to generate audio")
}

func TestCatalogAndStatsTools(t *testing.T) {
	h := NewServer(&fakeService{}).Handler()

	out := toolResult(t, call(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_voices"}}`))
	assert.Contains(t, out.Content[0].Text, `"nova"`)

	out = toolResult(t, call(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_tones"}}`))
	assert.Contains(t, out.Content[0].Text, `"casual"`)

	out = toolResult(t, call(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"preference_stats"}}`))
	assert.Contains(t, out.Content[0].Text, `"memory_entries":4`)
}

func TestProtocolErrors(t *testing.T) {
	h := NewServer(&fakeService{}).Handler()

	tests := []struct {
		body string
		code int
	}{
		{`{not json`, -32700},
		{`{"jsonrpc":"1.0","id":1,"method":"tools/list"}`, -32600},
		{`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, -32601},
		{`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"rm_rf"}}`, -32602},
		{`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":"oops"}`, -32602},
	}
	for _, tt := range tests {
		resp := call(t, h, tt.body)
		require.NotNil(t, resp.Error, tt.body)
		assert.Equal(t, tt.code, resp.Error.Code, tt.body)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	hash, err := auth.HashToken("letmein")
	require.NoError(t, err)
	h := AuthMiddleware(auth.NewService(hash))(NewServer(&fakeService{}).Handler())

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer letmein")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
