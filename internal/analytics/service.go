// Package analytics records gateway interactions and user feedback, and
// aggregates them into per-agent performance figures.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-builder/internal/apperr"
	"agent-builder/internal/logging"
	"agent-builder/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultMetricsLimit = 100
	maxMetricsLimit     = 1000
)

// MetricPoint is one metric sample joined with its agent's name
type MetricPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
	MetricType string    `json:"metric_type"`
	AgentID    uint      `json:"agent_id"`
	AgentName  string    `json:"agent_name"`
}

// AgentPerformance aggregates an agent's interactions. SuccessRate is a
// fraction in [0, 1]; AvgUserRating is 0 when nobody rated the agent.
type AgentPerformance struct {
	AgentID           uint    `json:"agent_id"`
	AgentName         string  `json:"agent_name"`
	TotalInteractions int64   `json:"total_interactions"`
	AvgResponseTime   float64 `json:"avg_response_time"`
	SuccessRate       float64 `json:"success_rate"`
	AvgUserRating     float64 `json:"avg_user_rating"`
	TotalTokens       int64   `json:"total_tokens"`
}

// Service records and aggregates analytics
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewService creates a new analytics service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, log: logging.Named("analytics")}
}

// RecordInteraction stores the interaction and its metric samples. Failures
// are logged and dropped, leaving interaction.ID zero.
func (s *Service) RecordInteraction(ctx context.Context, interaction *models.Interaction) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(interaction).Error; err != nil {
			return err
		}

		samples := []models.AgentMetric{{
			AgentID:    interaction.AgentID,
			MetricType: models.MetricResponseTime,
			Value:      float64(interaction.ResponseTimeMS),
			RecordedAt: interaction.CreatedAt,
		}}
		if interaction.Tokens > 0 {
			samples = append(samples, models.AgentMetric{
				AgentID:    interaction.AgentID,
				MetricType: models.MetricTokens,
				Value:      float64(interaction.Tokens),
				RecordedAt: interaction.CreatedAt,
			})
		}
		return tx.Create(&samples).Error
	})
	if err != nil {
		interaction.ID = 0
		s.log.Warn("failed to record interaction",
			zap.Uint("agent_id", interaction.AgentID),
			zap.String("provider", interaction.Provider),
			zap.Error(err),
		)
	}
}

// SubmitFeedback rates an interaction from 1 to 5
func (s *Service) SubmitFeedback(ctx context.Context, interactionID uint, rating int, comment string) (*models.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}

	db := s.db.WithContext(ctx)
	var interaction models.Interaction
	if err := db.First(&interaction, interactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Interaction not found")
		}
		return nil, fmt.Errorf("failed to fetch interaction: %w", err)
	}

	feedback := &models.Feedback{
		InteractionID: interaction.ID,
		AgentID:       interaction.AgentID,
		Rating:        rating,
		Comment:       strings.TrimSpace(comment),
	}
	if err := db.Create(feedback).Error; err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}
	return feedback, nil
}

// Metrics returns the newest metric samples across all agents, newest first
func (s *Service) Metrics(ctx context.Context, limit int) ([]MetricPoint, error) {
	if limit <= 0 {
		limit = defaultMetricsLimit
	}
	if limit > maxMetricsLimit {
		limit = maxMetricsLimit
	}

	points := make([]MetricPoint, 0)
	err := s.db.WithContext(ctx).
		Table("agent_metrics").
		Select("agent_metrics.recorded_at AS timestamp, agent_metrics.value, agent_metrics.metric_type, agent_metrics.agent_id, agents.name AS agent_name").
		Joins("JOIN agents ON agents.id = agent_metrics.agent_id").
		Order("agent_metrics.recorded_at DESC").
		Order("agent_metrics.id DESC").
		Limit(limit).
		Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}
	return points, nil
}

// Performance aggregates interactions and ratings per agent
func (s *Service) Performance(ctx context.Context) ([]AgentPerformance, error) {
	db := s.db.WithContext(ctx)

	rows := make([]AgentPerformance, 0)
	err := db.Table("agents").
		Select(`agents.id AS agent_id,
			agents.name AS agent_name,
			COUNT(interactions.id) AS total_interactions,
			COALESCE(AVG(interactions.response_time_ms), 0) AS avg_response_time,
			COALESCE(AVG(CASE WHEN interactions.success THEN 1.0 ELSE 0.0 END), 0) AS success_rate,
			COALESCE(SUM(interactions.tokens), 0) AS total_tokens`).
		Joins("LEFT JOIN interactions ON interactions.agent_id = agents.id").
		Group("agents.id, agents.name").
		Order("agents.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate interactions: %w", err)
	}

	var ratings []struct {
		AgentID   uint
		AvgRating float64
	}
	if err := db.Model(&models.Feedback{}).
		Select("agent_id, AVG(rating) AS avg_rating").
		Group("agent_id").
		Scan(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}

	byAgent := make(map[uint]float64, len(ratings))
	for _, r := range ratings {
		byAgent[r.AgentID] = r.AvgRating
	}
	for i := range rows {
		rows[i].AvgUserRating = byAgent[rows[i].AgentID]
		if rows[i].TotalInteractions == 0 {
			rows[i].SuccessRate = 0
		}
	}
	return rows, nil
}
