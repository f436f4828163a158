package handlers

import (
	"net/http"

	"agent-builder/internal/directory"

	"github.com/gin-gonic/gin"
)

// ListAgents returns every agent
func (h *Handler) ListAgents(c *gin.Context) {
	agents, err := h.Directory.ListAgents(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

// GetAgent returns one agent
func (h *Handler) GetAgent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	agent, err := h.Directory.GetAgent(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// CreateAgent stores a new agent
func (h *Handler) CreateAgent(c *gin.Context) {
	var req directory.AgentInput
	if !bindJSON(c, &req) {
		return
	}

	agent, err := h.Directory.CreateAgent(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// UpdateAgent applies the supplied fields to an agent
func (h *Handler) UpdateAgent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req directory.AgentInput
	if !bindJSON(c, &req) {
		return
	}

	agent, err := h.Directory.UpdateAgent(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// InitializeAgents seeds the premade catalog when no agents exist
func (h *Handler) InitializeAgents(c *gin.Context) {
	result, err := h.Directory.Initialize(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateTelegramBot validates a bot token for an agent
func (h *Handler) CreateTelegramBot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		TelegramToken string `json:"telegram_token"`
	}
	if !bindJSON(c, &req) {
		return
	}

	bot, err := h.Integrations.CreateTelegramBot(c.Request.Context(), id, req.TelegramToken)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

// ExportToGitHub returns the repository contents for an agent
func (h *Handler) ExportToGitHub(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		RepoName string `json:"repo_name"`
	}
	if !bindJSON(c, &req) {
		return
	}

	export, err := h.Integrations.ExportToGitHub(c.Request.Context(), id, req.RepoName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}

// ListTemplates returns every starter template
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.Directory.ListTemplates(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// GetTemplate returns one starter template
func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	template, err := h.Directory.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}
