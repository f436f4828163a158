package handlers

import (
	"agent-builder/internal/metrics"
	"agent-builder/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RouterOptions configures the shared middleware chain
type RouterOptions struct {
	CORSOrigins []string
	// RateLimiter is applied to /api routes when set
	RateLimiter *middleware.IPRateLimiter
}

// SetupRouter mounts every route on a new gin engine
func SetupRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger("/health", "/metrics"),
		middleware.Recovery(),
		middleware.Security(),
		middleware.CORS(opts.CORSOrigins),
		metrics.PrometheusMiddleware(),
	)

	router.GET("/health", h.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	api := router.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(middleware.RateLimit(opts.RateLimiter))
	}

	agents := api.Group("/agents")
	{
		agents.GET("", h.ListAgents)
		agents.POST("", h.CreateAgent)
		agents.POST("/initialize", h.InitializeAgents)
		agents.GET("/:id", h.GetAgent)
		agents.PUT("/:id", h.UpdateAgent)
		agents.POST("/:id/telegram-bot", h.CreateTelegramBot)
		agents.POST("/:id/export-github", h.ExportToGitHub)
	}

	templates := api.Group("/templates")
	{
		templates.GET("", h.ListTemplates)
		templates.GET("/:id", h.GetTemplate)
	}

	chats := api.Group("/collaborative-chats")
	{
		chats.GET("", h.ListChats)
		chats.POST("", h.CreateChat)
		chats.GET("/:id", h.GetChat)
		chats.POST("/:id/participants", h.AddParticipant)
		chats.POST("/:id/messages", h.SendMessage)
		chats.GET("/:id/debug", h.ListDebugEvents)
		chats.POST("/:id/debug", h.AppendDebugEvent)
		if h.Stream != nil {
			chats.GET("/:id/debug/stream", h.StreamDebugEvents)
		}
	}

	api.POST("/ai/chat", h.Chat)

	analytics := api.Group("/analytics")
	{
		analytics.GET("/metrics", h.GetMetrics)
		analytics.GET("/performance", h.GetPerformance)
	}
	api.POST("/interactions/:id/feedback", h.SubmitFeedback)

	return router
}
