package handlers

import (
	"net/http"

	"agent-builder/internal/collab"
	"agent-builder/internal/debuglog"
	"agent-builder/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListChats returns chats newest first
func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.Chats.ListChats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// CreateChat stores a chat with its initial participants
func (h *Handler) CreateChat(c *gin.Context) {
	var req collab.CreateChatInput
	if !bindJSON(c, &req) {
		return
	}

	chat, err := h.Chats.CreateChat(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// GetChat returns a chat with participants and ordered messages
func (h *Handler) GetChat(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	chat, err := h.Chats.GetChat(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// AddParticipant adds an agent to a chat
func (h *Handler) AddParticipant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		AgentID uint                   `json:"agent_id"`
		Role    models.ParticipantRole `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}

	participant, err := h.Chats.AddParticipant(c.Request.Context(), id, req.AgentID, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

// SendMessage posts a message on behalf of a participant agent
func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		AgentID uint   `json:"agent_id"`
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.Chats.SendMessage(c.Request.Context(), id, req.AgentID, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

// ListDebugEvents returns the most recent debug events of a chat
func (h *Handler) ListDebugEvents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	events, err := h.Debug.Recent(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// AppendDebugEvent stores a client-submitted debug event
func (h *Handler) AppendDebugEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req debuglog.AppendInput
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.Debug.Append(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// StreamDebugEvents upgrades to a WebSocket that receives each new debug
// event of the chat as it is stored
func (h *Handler) StreamDebugEvents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Chats.CheckChat(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	// The upgrader has already written the HTTP error on failure
	if err := h.Stream.ServeChat(c.Writer, c.Request, id); err != nil {
		h.log.Debug("websocket upgrade failed", zap.Uint("chat_id", id), zap.Error(err))
	}
}
