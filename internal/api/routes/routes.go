package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/mobiusml/aana-chat-with-video/internal/api/handlers"
)

type Deps struct {
	Video *handlers.VideoHandler
	Chat  *handlers.ChatHandler
	WS    *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/videos/index", d.Video.Index)
	r.POST("/videos/upload", d.Video.Upload)
	r.GET("/videos/:media_id/status", d.Video.Status)
	r.GET("/videos/:media_id/metadata", d.Video.Metadata)
	r.GET("/videos/:media_id/events", d.Video.Events)
	r.DELETE("/videos/:media_id", d.Video.Delete)

	r.POST("/videos/:media_id/chat", d.Chat.Chat)

	// WebSocket
	r.GET("/ws/videos/:media_id/chat", d.WS.ChatWS)
}
