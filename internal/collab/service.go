// Package collab orchestrates multi-agent collaborative chats: session
// creation, participant membership and message authorship.
package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agent-builder/internal/apperr"
	"agent-builder/internal/logging"
	"agent-builder/internal/metrics"
	"agent-builder/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DebugRecorder appends best-effort audit events for a chat
type DebugRecorder interface {
	Record(ctx context.Context, chatID uint, eventType models.DebugEventType, message string, details map[string]interface{})
}

// CreateChatInput is the payload of CreateChat
type CreateChatInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Participants []uint `json:"participants"`
}

// ChatDetail is a chat with its full participant and message lists
type ChatDetail struct {
	*models.CollaborativeChat
	Participants []models.ChatParticipant `json:"participants"`
	Messages     []models.ChatMessage     `json:"messages"`
}

// Service is the collaborative chat orchestrator
type Service struct {
	db      *gorm.DB
	debug   DebugRecorder
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewService creates an orchestrator writing its audit trail to debug
func NewService(db *gorm.DB, debug DebugRecorder) *Service {
	return &Service{
		db:      db,
		debug:   debug,
		metrics: metrics.Get(),
		log:     logging.Named("collab"),
	}
}

// CreateChat stores the chat and its initial participants atomically. A
// missing agent or a failed insert rolls the whole chat back.
func (s *Service) CreateChat(ctx context.Context, in CreateChatInput) (*ChatDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	agentIDs := uniqueIDs(in.Participants)
	chat := &models.CollaborativeChat{Name: name, Description: in.Description}
	participants := make([]models.ChatParticipant, 0, len(agentIDs))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}

		for _, agentID := range agentIDs {
			agent, err := findAgent(tx, agentID)
			if err != nil {
				return err
			}

			participant := models.ChatParticipant{
				ChatID:  chat.ID,
				AgentID: agentID,
				Role:    models.RoleParticipant,
			}
			if err := tx.Create(&participant).Error; err != nil {
				return fmt.Errorf("failed to add participant %d: %w", agentID, err)
			}
			participant.Agent = agent
			participants = append(participants, participant)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("chat creation rolled back", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.metrics.ChatsCreatedTotal.Inc()
	s.metrics.ParticipantsAdded.WithLabelValues(string(models.RoleParticipant)).Add(float64(len(participants)))
	s.debug.Record(ctx, chat.ID, models.DebugInfo, "Chat created", map[string]interface{}{
		"participants": agentIDs,
	})

	return &ChatDetail{
		CollaborativeChat: chat,
		Participants:      participants,
		Messages:          []models.ChatMessage{},
	}, nil
}

// AddParticipant attaches an agent to an existing chat. Adding an agent that is
// already a participant returns the existing row unchanged.
func (s *Service) AddParticipant(ctx context.Context, chatID, agentID uint, role models.ParticipantRole) (*models.ChatParticipant, error) {
	if role == "" {
		role = models.RoleParticipant
	}
	if !role.Valid() {
		return nil, apperr.Validation("role must be one of moderator, participant")
	}

	db := s.db.WithContext(ctx)
	if err := ensureChat(db, chatID); err != nil {
		return nil, err
	}
	agent, err := findAgent(db, agentID)
	if err != nil {
		return nil, err
	}

	if existing, err := findParticipant(db, chatID, agentID); err == nil {
		existing.Agent = agent
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}

	participant := &models.ChatParticipant{ChatID: chatID, AgentID: agentID, Role: role}
	if err := db.Create(participant).Error; err != nil {
		// lost a race with a concurrent add of the same pair
		if existing, findErr := findParticipant(db, chatID, agentID); findErr == nil {
			existing.Agent = agent
			return existing, nil
		}
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}
	participant.Agent = agent

	s.metrics.ParticipantsAdded.WithLabelValues(string(role)).Inc()
	s.debug.Record(ctx, chatID, models.DebugInfo, fmt.Sprintf("Agent %s joined the chat", agent.Name), map[string]interface{}{
		"agent_id": agentID,
		"role":     string(role),
	})

	return participant, nil
}

// SendMessage stores a message authored by a participant of the chat
func (s *Service) SendMessage(ctx context.Context, chatID, agentID uint, content string) (*models.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("content is required")
	}

	db := s.db.WithContext(ctx)
	if err := ensureChat(db, chatID); err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND agent_id = ?", chatID, agentID).
		Count(&count).Error; err != nil {
		return nil, s.failSend(ctx, chatID, agentID, fmt.Errorf("failed to check participant: %w", err))
	}

	if count == 0 {
		s.metrics.RecordMessage("forbidden")
		s.debug.Record(ctx, chatID, models.DebugError, "Agent is not a participant in this chat", map[string]interface{}{
			"agent_id": agentID,
		})
		return nil, apperr.Forbidden("Agent is not a participant in this chat")
	}

	agent, err := findAgent(db, agentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, s.failSend(ctx, chatID, agentID, err)
	}

	message := &models.ChatMessage{ChatID: chatID, AgentID: agentID, Content: content}
	if err := db.Create(message).Error; err != nil {
		return nil, s.failSend(ctx, chatID, agentID, fmt.Errorf("failed to store message: %w", err))
	}
	message.Agent = agent

	s.metrics.RecordMessage("sent")
	s.debug.Record(ctx, chatID, models.DebugSuccess, fmt.Sprintf("Message sent by %s", agent.Name), map[string]interface{}{
		"agent_id":   agentID,
		"message_id": message.ID,
	})

	return message, nil
}

// failSend records the failure on the chat's audit trail and hands the
// original error back to the caller.
func (s *Service) failSend(ctx context.Context, chatID, agentID uint, err error) error {
	s.metrics.RecordMessage("error")
	s.log.Error("send message failed", zap.Uint("chat_id", chatID), zap.Uint("agent_id", agentID), zap.Error(err))
	s.debug.Record(ctx, chatID, models.DebugError, "Failed to send message", map[string]interface{}{
		"agent_id": agentID,
		"error":    err.Error(),
	})
	return err
}

// GetChat returns the chat with every participant and message, each joined to
// its agent. Messages are ordered by creation time, ties by id.
func (s *Service) GetChat(ctx context.Context, chatID uint) (*ChatDetail, error) {
	db := s.db.WithContext(ctx)

	var chat models.CollaborativeChat
	if err := db.First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Chat not found")
		}
		return nil, fmt.Errorf("failed to fetch chat: %w", err)
	}

	participants := make([]models.ChatParticipant, 0)
	if err := db.Preload("Agent").
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}

	messages := make([]models.ChatMessage, 0)
	if err := db.Preload("Agent").
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return &ChatDetail{CollaborativeChat: &chat, Participants: participants, Messages: messages}, nil
}

// ListChats returns chats newest first, without children
func (s *Service) ListChats(ctx context.Context) ([]models.CollaborativeChat, error) {
	chats := make([]models.CollaborativeChat, 0)
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}
	return chats, nil
}

// CheckChat reports a NotFound error when the chat does not exist
func (s *Service) CheckChat(ctx context.Context, chatID uint) error {
	return ensureChat(s.db.WithContext(ctx), chatID)
}

func ensureChat(db *gorm.DB, chatID uint) error {
	var chat models.CollaborativeChat
	if err := db.Select("id").First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Chat not found")
		}
		return fmt.Errorf("failed to fetch chat: %w", err)
	}
	return nil
}

func findAgent(db *gorm.DB, agentID uint) (*models.Agent, error) {
	var agent models.Agent
	if err := db.First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Agent %d not found", agentID)
		}
		return nil, fmt.Errorf("failed to fetch agent %d: %w", agentID, err)
	}
	return &agent, nil
}

func findParticipant(db *gorm.DB, chatID, agentID uint) (*models.ChatParticipant, error) {
	var participant models.ChatParticipant
	err := db.Where("chat_id = ? AND agent_id = ?", chatID, agentID).First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
