package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetMetrics returns recent metric samples. ?limit caps the count.
func (h *Handler) GetMetrics(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			badRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	points, err := h.Analytics.Metrics(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// GetPerformance returns per-agent aggregates
func (h *Handler) GetPerformance(c *gin.Context) {
	perf, err := h.Analytics.Performance(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

// SubmitFeedback rates an interaction
func (h *Handler) SubmitFeedback(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if !bindJSON(c, &req) {
		return
	}

	feedback, err := h.Analytics.SubmitFeedback(c.Request.Context(), id, req.Rating, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}
