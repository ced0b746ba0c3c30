package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/services"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type ChatRequest struct {
	Question string                `json:"question" binding:"required"`
	Sampling models.SamplingParams `json:"sampling_params"`
}

// Chat streams completion tokens as newline-delimited JSON.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Chat", "invalid request body", err))
		return
	}

	tokens, errs, err := h.chat.Answer(c.Request.Context(), c.Param("media_id"), req.Question, req.Sampling)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	flush := func() {
		if f, ok := c.Writer.(http.Flusher); ok {
			f.Flush()
		}
	}

	for tok := range tokens {
		_ = enc.Encode(gin.H{"completion": tok})
		flush()
	}
	if err := <-errs; err != nil {
		_ = enc.Encode(gin.H{"type": "error", "error": apiError(err)})
		flush()
		return
	}
	_ = enc.Encode(gin.H{"type": "done"})
	flush()
}
