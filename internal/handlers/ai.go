package handlers

import (
	"net/http"

	"agent-builder/internal/ai"

	"github.com/gin-gonic/gin"
)

// Chat generates one assistant reply for an agent
func (h *Handler) Chat(c *gin.Context) {
	var req ai.ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.Gateway.Chat(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
