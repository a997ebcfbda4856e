package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/middleware"
	"github.com/yoockh/mockinterview/internal/metrics"
)

type Deps struct {
	Interview    *handlers.InterviewHandler
	Conversation *handlers.ConversationHandler // nil when the archive is disabled
	WS           *handlers.WSHandler           // nil without Redis
	Auth         gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(metrics.Middleware())

	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := r.Group("/")
	auth.Use(d.Auth)

	iv := auth.Group("/interviews")
	iv.POST("", d.Interview.Create)
	iv.GET("", d.Interview.List)
	iv.GET("/:session_id", d.Interview.Get)
	iv.POST("/:session_id/start", d.Interview.Start)
	iv.POST("/:session_id/answer", d.Interview.Answer)
	iv.POST("/:session_id/answer/audio", d.Interview.AnswerAudio)
	iv.GET("/:session_id/recordings/:ref", d.Interview.Recording)
	iv.POST("/:session_id/complete", d.Interview.Complete)
	iv.POST("/:session_id/cancel", d.Interview.Cancel)

	if d.Conversation != nil {
		auth.GET("/conversation/:session_id", d.Conversation.ListBySession)
		auth.GET("/history", d.Conversation.History)
	}

	// WebSocket
	if d.WS != nil {
		auth.GET("/ws/interviews/:session_id", d.WS.SessionWS)
	}

	admin := auth.Group("/admin", middleware.RequireAdmin())
	admin.GET("/interviews/:session_id", d.Interview.AdminGet)
}
