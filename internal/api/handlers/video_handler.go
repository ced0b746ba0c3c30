package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
	"github.com/mobiusml/aana-chat-with-video/internal/services"
	"github.com/mobiusml/aana-chat-with-video/internal/storage"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

type VideoHandler struct {
	index   services.IndexService
	videos  services.VideoService
	uploads storage.Uploader // nil when no upload store is configured
}

func NewVideoHandler(index services.IndexService, videos services.VideoService, uploads storage.Uploader) *VideoHandler {
	return &VideoHandler{index: index, videos: videos, uploads: uploads}
}

type IndexVideoRequest struct {
	Video   models.VideoInput    `json:"video" binding:"required"`
	Whisper models.WhisperParams `json:"whisper_params"`
	Frames  models.VideoParams   `json:"video_params"`
}

// Index streams pipeline progress as newline-delimited JSON. The record only
// reaches a terminal status once the stream is consumed to its end.
func (h *VideoHandler) Index(c *gin.Context) {
	var req IndexVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "VideoHandler.Index", "invalid request body", err))
		return
	}

	events, errs := h.index.Index(c.Request.Context(), req.Video, req.Whisper, req.Frames)

	wrote := false
	enc := json.NewEncoder(c.Writer)
	flush := func() {
		if f, ok := c.Writer.(http.Flusher); ok {
			f.Flush()
		}
	}

	for ev := range events {
		if !wrote {
			c.Header("Content-Type", "application/x-ndjson")
			c.Status(http.StatusOK)
			wrote = true
		}
		_ = enc.Encode(ev)
		flush()
	}

	if err := <-errs; err != nil {
		if !wrote {
			writeError(c, err)
			return
		}
		// Headers are gone; surface the failure as a final stream element.
		_ = enc.Encode(gin.H{"type": "error", "error": apiError(err)})
		flush()
	}
}

// Upload stores a raw video file and returns the reference to index it with.
func (h *VideoHandler) Upload(c *gin.Context) {
	const op = "VideoHandler.Upload"

	if h.uploads == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "no upload store configured", nil))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file is required", err))
		return
	}

	src, err := file.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer src.Close()

	objectName := "uploads/" + uuid.NewString() + filepath.Ext(file.Filename)
	if _, err := h.uploads.Upload(c.Request.Context(), objectName, file.Header.Get("Content-Type"), src); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to store upload", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload_ref": objectName})
}

func (h *VideoHandler) Status(c *gin.Context) {
	status, err := h.videos.GetStatus(c.Request.Context(), c.Param("media_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *VideoHandler) Metadata(c *gin.Context) {
	md, err := h.videos.GetMetadata(c.Request.Context(), c.Param("media_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metadata": md})
}

func (h *VideoHandler) Delete(c *gin.Context) {
	mediaID := c.Param("media_id")
	if err := h.videos.Delete(c.Request.Context(), mediaID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"media_id": mediaID})
}

// Events replays buffered pipeline progress for a media id.
func (h *VideoHandler) Events(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)

	rows, err := h.videos.ListEvents(c.Request.Context(), c.Param("media_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}
