// Package handlers exposes the agent builder services over HTTP/JSON.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"agent-builder/internal/ai"
	"agent-builder/internal/analytics"
	"agent-builder/internal/apperr"
	"agent-builder/internal/collab"
	"agent-builder/internal/debuglog"
	"agent-builder/internal/directory"
	"agent-builder/internal/integrations"
	"agent-builder/internal/logging"
	"agent-builder/internal/middleware"
	"agent-builder/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler contains all the dependencies for API handlers
type Handler struct {
	Directory    *directory.Service
	Chats        *collab.Service
	Debug        *debuglog.Service
	Gateway      *ai.Gateway
	Analytics    *analytics.Service
	Integrations *integrations.Service
	// Stream serves live debug events; nil disables the route
	Stream *websocket.Hub

	// HealthCheck reports store connectivity for /health
	HealthCheck func() error

	log *zap.Logger
}

// Services groups the constructed services a Handler serves
type Services struct {
	Directory    *directory.Service
	Chats        *collab.Service
	Debug        *debuglog.Service
	Gateway      *ai.Gateway
	Analytics    *analytics.Service
	Integrations *integrations.Service
	Stream       *websocket.Hub
	HealthCheck  func() error
}

// NewHandler creates a new handler instance
func NewHandler(s Services) *Handler {
	return &Handler{
		Directory:    s.Directory,
		Chats:        s.Chats,
		Debug:        s.Debug,
		Gateway:      s.Gateway,
		Analytics:    s.Analytics,
		Integrations: s.Integrations,
		Stream:       s.Stream,
		HealthCheck:  s.HealthCheck,
		log:          logging.Named("handlers"),
	}
}

// Error codes returned in the "code" field of error bodies
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeForbidden      = "FORBIDDEN"
	CodeValidation     = "VALIDATION_ERROR"
	CodeAINotConfig    = "AI_NOT_CONFIGURED"
	CodeAIFailed       = "AI_REQUEST_FAILED"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
)

func (h *Handler) respondError(c *gin.Context, err error) {
	status, body := h.classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func (h *Handler) classify(err error) (int, middleware.ErrorResponse) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, middleware.ErrorResponse{Error: apperr.PublicMessage(err, "Not found"), Code: CodeNotFound}
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, middleware.ErrorResponse{Error: apperr.PublicMessage(err, "Forbidden"), Code: CodeForbidden}
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, middleware.ErrorResponse{Error: apperr.PublicMessage(err, "Invalid request"), Code: CodeValidation}
	case errors.Is(err, apperr.ErrConfiguration):
		return http.StatusInternalServerError, middleware.ErrorResponse{Error: ai.MsgNotConfigured, Code: CodeAINotConfig}
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusInternalServerError, middleware.ErrorResponse{Error: ai.MsgRequestFailed, Code: CodeAIFailed}
	default:
		return http.StatusInternalServerError, middleware.ErrorResponse{Error: "Internal server error", Code: CodeInternal}
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: message, Code: CodeInvalidRequest})
}

// bindJSON decodes the body into dst, answering 400 on malformed input
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid request format")
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter, answering 400 otherwise
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// Health reports liveness and store connectivity
func (h *Handler) Health(c *gin.Context) {
	if h.HealthCheck != nil {
		if err := h.HealthCheck(); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "ok"})
}
