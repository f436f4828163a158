// Package debuglog stores the per-chat audit trail of collaborative chat
// operations and gateway calls.
package debuglog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-builder/internal/apperr"
	"agent-builder/internal/logging"
	"agent-builder/internal/metrics"
	"agent-builder/pkg/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecentLimit caps how many events Recent returns
const RecentLimit = 50

// recordTimeout bounds a Record write once it is detached from the caller
const recordTimeout = 5 * time.Second

// Publisher receives each event after it is stored
type Publisher interface {
	Publish(event *models.DebugEvent)
}

// Service appends and reads debug events
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	publisher Publisher
}

// NewService creates a new debug log service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, log: logging.Named("debuglog")}
}

// SetPublisher streams stored events to p. Call before serving requests.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Service) publish(event *models.DebugEvent) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

// Record appends an event. Failures are logged and dropped; the caller's
// operation has already happened and must not be affected. The write ignores
// cancellation of ctx, so outcomes of requests whose client disconnected are
// still recorded.
func (s *Service) Record(ctx context.Context, chatID uint, eventType models.DebugEventType, message string, details map[string]interface{}) {
	event := &models.DebugEvent{
		ChatID:  chatID,
		Type:    eventType,
		Message: message,
	}
	if len(details) > 0 {
		event.Details = datatypes.JSONMap(details)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := s.db.WithContext(writeCtx).Create(event).Error
	metrics.Get().RecordDebugEvent(string(eventType), err)
	if err != nil {
		s.log.Warn("failed to write debug event",
			zap.Uint("chat_id", chatID),
			zap.String("type", string(eventType)),
			zap.String("message", message),
			zap.Error(err),
		)
		return
	}
	s.publish(event)
}

// AppendInput is the client-submitted form of an event
type AppendInput struct {
	Type    models.DebugEventType  `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Append validates and stores a client-submitted event
func (s *Service) Append(ctx context.Context, chatID uint, in AppendInput) (*models.DebugEvent, error) {
	if !in.Type.Valid() {
		return nil, apperr.Validation("type must be one of error, success, info")
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}

	db := s.db.WithContext(ctx)
	if err := db.Select("id").First(&models.CollaborativeChat{}, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Chat not found")
		}
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	event := &models.DebugEvent{
		ChatID:  chatID,
		Type:    in.Type,
		Message: message,
	}
	if len(in.Details) > 0 {
		event.Details = datatypes.JSONMap(in.Details)
	}

	if err := db.Create(event).Error; err != nil {
		metrics.Get().RecordDebugEvent(string(in.Type), err)
		return nil, fmt.Errorf("failed to store debug event: %w", err)
	}
	metrics.Get().RecordDebugEvent(string(in.Type), nil)
	s.publish(event)

	return event, nil
}

// Recent returns the newest events of a chat, newest first, at most RecentLimit
func (s *Service) Recent(ctx context.Context, chatID uint) ([]models.DebugEvent, error) {
	events := make([]models.DebugEvent, 0)
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(RecentLimit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch debug events: %w", err)
	}
	return events, nil
}
