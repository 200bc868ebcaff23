package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// WebSocketHandler serves chat turns over a single connection. Each "chat"
// message runs one turn and is answered with "chat_response"; the session
// id from the first reply can be echoed back to continue the conversation.
func (h *Handlers) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	outbox := make(chan WebSocketMessage, 8)
	done := make(chan struct{})
	go h.writePump(conn, outbox, done)
	defer func() {
		close(outbox)
		<-done
	}()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		switch msg.Type {
		case "chat":
			outbox <- h.handleChatMessage(r, &msg)
		case "ping":
			outbox <- WebSocketMessage{Type: "pong"}
		default:
			outbox <- WebSocketMessage{
				Type:  "error",
				Error: "Unknown message type",
			}
		}
	}
}

func (h *Handlers) handleChatMessage(r *http.Request, msg *WebSocketMessage) WebSocketMessage {
	resp, err := h.chat.Turn(r.Context(), msg.SessionID, msg.Message)
	if err != nil {
		status := statusFor(err)
		reply := WebSocketMessage{Type: "error", SessionID: msg.SessionID, Error: http.StatusText(status)}
		if status == http.StatusBadRequest {
			reply.Error = err.Error()
		} else {
			h.log.Error().Err(err).Msg("websocket chat turn failed")
		}
		return reply
	}
	return WebSocketMessage{
		Type:      "chat_response",
		SessionID: resp.SessionID,
		Data:      mustMarshal(resp),
	}
}

// writePump owns every write on conn, including keepalive pings.
func (h *Handlers) writePump(conn *websocket.Conn, outbox <-chan WebSocketMessage, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-outbox:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("websocket write failed")
				conn.Close()
				drain(outbox)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				drain(outbox)
				return
			}
		}
	}
}

func drain(ch <-chan WebSocketMessage) {
	for range ch {
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
