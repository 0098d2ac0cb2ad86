package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/models"
	"github.com/snappy-loop/podcasts/internal/processor"
)

const (
	podcastWSReadLimit = 64 << 10
	podcastWSIdle      = 30 * time.Minute
)

var podcastWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// podcastWSOutMessage is the JSON shape sent to the client.
type podcastWSOutMessage struct {
	Type   string                  `json:"type"`
	Stage  string                  `json:"stage,omitempty"`
	Result *models.PodcastResponse `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// PodcastWS handles GET /v1/podcasts/ws. Each client message is a
// generation request; the server answers with one "stage" message per
// pipeline stage followed by a "result" message.
func (h *Handler) PodcastWS(w http.ResponseWriter, r *http.Request) {
	conn, err := podcastWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("podcast ws upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(podcastWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(podcastWSIdle))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(podcastWSIdle))
		return nil
	})

	ctx := r.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("podcast ws read")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(podcastWSIdle))

		var req models.GenerationRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			_ = writeWSJSON(conn, podcastWSOutMessage{Type: "result", Error: "invalid JSON: " + err.Error()})
			continue
		}

		var writeErr error
		resp, err := h.svc.GenerateWithProgress(ctx, req, func(stage processor.Stage) {
			if writeErr == nil {
				writeErr = writeWSJSON(conn, podcastWSOutMessage{Type: "stage", Stage: stage.String()})
			}
		})
		if writeErr != nil {
			log.Debug().Err(writeErr).Msg("podcast ws write")
			return
		}

		out := podcastWSOutMessage{Type: "result"}
		if err != nil {
			out.Error = err.Error()
		} else {
			out.Result = &resp
			if !resp.Success {
				out.Error = resp.ErrorMessage
			}
		}
		if err := writeWSJSON(conn, out); err != nil {
			log.Debug().Err(err).Msg("podcast ws write")
			return
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return conn.WriteJSON(v)
}
