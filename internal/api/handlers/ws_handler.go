package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/services"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

type WSHandler struct {
	chat     services.ChatService
	upgrader websocket.Upgrader
}

func NewWSHandler(chat services.ChatService) *WSHandler {
	return &WSHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsChatMsg struct {
	Question string                `json:"question"`
	Sampling models.SamplingParams `json:"sampling_params"`
}

type wsServerMsg struct {
	Type  string `json:"type"` // token|done|error
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// ChatWS answers questions about one video over a websocket. Each client
// message starts a completion; its tokens stream back before the next
// question is read.
func (h *WSHandler) ChatWS(c *gin.Context) {
	mediaID := c.Param("media_id")
	if mediaID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.ChatWS", "missing media_id", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		return nil
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}

		var msg wsChatMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: string(utils.CodeInvalidArgument), Error: "invalid json"})
			continue
		}

		tokens, errs, aerr := h.chat.Answer(ctx, mediaID, msg.Question, msg.Sampling)
		if aerr != nil {
			ae := apiError(aerr)
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: string(ae.Code), Error: ae.Message})
			continue
		}

		for tok := range tokens {
			if werr := wc.writeJSON(wsServerMsg{Type: "token", Token: tok}); werr != nil {
				return
			}
		}
		if serr := <-errs; serr != nil {
			ae := apiError(serr)
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: string(ae.Code), Error: ae.Message})
			continue
		}
		if werr := wc.writeJSON(wsServerMsg{Type: "done"}); werr != nil {
			return
		}
	}
}
