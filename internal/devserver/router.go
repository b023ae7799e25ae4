package devserver

import (
	"github.com/gin-gonic/gin"

	"deskline.app/chatsync/core/config"
)

// NewRouter wires the stub server: a public token mint endpoint, public
// upload downloads, and the authenticated + throttled chat API group.
func NewRouter(cfg config.DevServerConfig) *gin.Engine {
	h := NewChatHandler(cfg.JWTSecret)
	limiter := newRateLimiter(cfg.RateLimit)

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/auth/dev-token", h.MintToken)
	router.GET("/uploads/:id", h.ServeUpload)

	chat := router.Group("/api/chat")
	chat.Use(authMiddleware(h.store, cfg.JWTSecret), limiter.middleware())
	{
		chat.GET("/employees", h.Employees)
		chat.PATCH("/status", h.UpdateStatus)
		chat.GET("/conversations", h.Conversations)
		chat.GET("/conversations/:id/messages", h.Messages)
		chat.POST("/messages", h.SendMessage)
		chat.POST("/messages/file", h.SendFileMessage)
		chat.POST("/upload", h.Upload)
		chat.GET("/unread-count", h.UnreadCount)
	}

	return router
}
