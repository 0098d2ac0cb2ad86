// Package mcpserver exposes podcast generation as MCP tools over
// JSON-RPC 2.0 on HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/models"
)

const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 request
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSON-RPC 2.0 response
type jsonRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP tools/list result
type toolsListResult struct {
	Tools      []mcpTool `json:"tools"`
	NextCursor *string   `json:"nextCursor,omitempty"`
}

type mcpTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema inputSchema `json:"inputSchema"`
}

type inputSchema struct {
	Type       string                `json:"type"`
	Properties map[string]schemaProp `json:"properties"`
	Required   []string              `json:"required,omitempty"`
}

type schemaProp struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// MCP tools/call result
type toolsCallResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// podcastService is the subset of services.PodcastService the tools call.
type podcastService interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.PodcastResponse, error)
	Stats(ctx context.Context) (*models.MemoryStats, error)
	Voices() []models.VoiceInfo
	Tones() []models.ToneInfo
}

// Server implements MCP JSON-RPC 2.0 over HTTP (initialize, tools/list and tools/call).
type Server struct {
	svc podcastService
}

// NewServer returns a new MCP server backed by svc.
func NewServer(svc podcastService) *Server {
	return &Server{svc: svc}
}

// Handler returns the HTTP handler for JSON-RPC requests.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveJSONRPC)
}

func (s *Server) serveJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, nil, -32700, "Parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		writeRPCError(w, req.ID, -32600, "Invalid Request")
		return
	}

	var result interface{}
	var rpcErr *rpcError
	switch req.Method {
	case "initialize":
		result = s.handleInitialize()
	case "notifications/initialized":
		w.WriteHeader(http.StatusAccepted)
		return
	case "tools/list":
		result = s.handleToolsList()
	case "tools/call":
		result, rpcErr = s.handleToolsCall(r.Context(), req.Params)
	default:
		writeRPCError(w, req.ID, -32601, "Method not found")
		return
	}

	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) handleInitialize() interface{} {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]string{
			"name":    "podcasts",
			"version": "1.0.0",
		},
	}
}

func (s *Server) handleToolsList() interface{} {
	tones := make([]string, len(models.Tones))
	for i, t := range models.Tones {
		tones[i] = string(t)
	}
	voices := make([]string, len(models.Voices))
	for i, v := range models.Voices {
		voices[i] = string(v)
	}

	empty := inputSchema{Type: "object", Properties: map[string]schemaProp{}}
	return &toolsListResult{
		Tools: []mcpTool{
			{
				Name:        "generate_podcast",
				Description: "Write a podcast script about a topic, narrate it and store the audio file",
				InputSchema: inputSchema{
					Type: "object",
					Properties: map[string]schemaProp{
						"topic":            {Type: "string", Description: "What the episode is about"},
						"tone":             {Type: "string", Description: "Script style", Enum: tones},
						"voice":            {Type: "string", Description: "Narrator voice", Enum: voices},
						"duration_minutes": {Type: "number", Description: "Target length in minutes (1-30)"},
					},
					Required: []string{"topic"},
				},
			},
			{
				Name:        "list_voices",
				Description: "List narrator voices with their characteristics",
				InputSchema: empty,
			},
			{
				Name:        "list_tones",
				Description: "List script tones with descriptions",
				InputSchema: empty,
			},
			{
				Name:        "preference_stats",
				Description: "Show preference history and storage statistics",
				InputSchema: empty,
			},
		},
	}
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, paramsRaw json.RawMessage) (interface{}, *rpcError) {
	var params toolsCallParams
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return nil, &rpcError{Code: -32602, Message: "Invalid params"}
	}
	switch params.Name {
	case "generate_podcast":
		return s.callGeneratePodcast(ctx, params.Arguments), nil
	case "list_voices":
		return jsonResult(s.svc.Voices()), nil
	case "list_tones":
		return jsonResult(s.svc.Tones()), nil
	case "preference_stats":
		stats, err := s.svc.Stats(ctx)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return jsonResult(stats), nil
	default:
		return nil, &rpcError{Code: -32602, Message: "Unknown tool: " + params.Name}
	}
}

func (s *Server) callGeneratePodcast(ctx context.Context, args map[string]interface{}) *toolsCallResult {
	req := models.GenerationRequest{
		Topic:           getStr(args, "topic"),
		Tone:            models.Tone(getStr(args, "tone")),
		Voice:           models.Voice(getStr(args, "voice")),
		DurationMinutes: getNum(args, "duration_minutes"),
	}
	resp, err := s.svc.Generate(ctx, req)
	if err != nil {
		if !errors.Is(err, models.ErrValidation) {
			log.Error().Err(err).Str("topic", req.Topic).Msg("MCP generate_podcast failed")
		}
		return errorResult(err.Error())
	}
	out := jsonResult(resp)
	out.IsError = !resp.Success
	return out
}

func getStr(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getNum(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

func jsonResult(v interface{}) *toolsCallResult {
	raw, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return &toolsCallResult{Content: []contentItem{{Type: "text", Text: string(raw)}}}
}

func errorResult(msg string) *toolsCallResult {
	return &toolsCallResult{
		Content: []contentItem{{Type: "text", Text: msg}},
		IsError: true,
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeRPCError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
