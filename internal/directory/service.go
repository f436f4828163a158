// Package directory manages agent and template records.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agent-builder/internal/apperr"
	"agent-builder/internal/cache"
	"agent-builder/internal/logging"
	"agent-builder/internal/metrics"
	"agent-builder/pkg/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// initializeLockKey serializes concurrent Initialize calls on PostgreSQL
const initializeLockKey = 7340021

// AgentInput is a create or partial update payload. Nil fields are "not supplied".
type AgentInput struct {
	Name              *string               `json:"name"`
	Description       *string               `json:"description"`
	PersonalityTraits []string              `json:"personality_traits"`
	ModelProvider     *models.ModelProvider `json:"model_provider"`
	ModelName         *string               `json:"model_name"`
	Temperature       *int                  `json:"temperature"`
	ImageURL          *string               `json:"image_url"`
	TemplateID        *uint                 `json:"template_id"`
	Nodes             json.RawMessage       `json:"nodes"`
	Edges             json.RawMessage       `json:"edges"`
}

// InitializeResult reports what Initialize did
type InitializeResult struct {
	Initialized bool           `json:"initialized"`
	Message     string         `json:"message"`
	Agents      []models.Agent `json:"agents,omitempty"`
}

// Service is the agent directory
type Service struct {
	db    *gorm.DB
	cache *cache.AgentCache
	log   *zap.Logger
}

// NewService creates a directory over db. agentCache may be nil.
func NewService(db *gorm.DB, agentCache *cache.AgentCache) *Service {
	return &Service{db: db, cache: agentCache, log: logging.Named("directory")}
}

// ListAgents returns every agent ordered by id
func (s *Service) ListAgents(ctx context.Context) ([]models.Agent, error) {
	loaded := false
	agents, err := s.cache.GetOrLoadAgents(ctx, func() ([]models.Agent, error) {
		loaded = true
		return s.loadAgents(ctx)
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		metrics.Get().RecordCacheOperation("agents", !loaded)
	}
	return agents, nil
}

func (s *Service) loadAgents(ctx context.Context) ([]models.Agent, error) {
	agents := make([]models.Agent, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch agents: %w", err)
	}
	return agents, nil
}

// GetAgent returns one agent or NotFound
func (s *Service) GetAgent(ctx context.Context, id uint) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Agent not found")
		}
		return nil, fmt.Errorf("failed to fetch agent: %w", err)
	}
	return &agent, nil
}

// CreateAgent validates and stores a new agent
func (s *Service) CreateAgent(ctx context.Context, in AgentInput) (*models.Agent, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.ModelProvider == nil {
		return nil, apperr.Validation("model_provider is required")
	}
	if in.ModelName == nil || strings.TrimSpace(*in.ModelName) == "" {
		return nil, apperr.Validation("model_name is required")
	}

	nodes, edges := datatypes.JSON("[]"), datatypes.JSON("[]")
	agent := &models.Agent{
		PersonalityTraits: []string{},
		Temperature:       defaultTemperature,
		Nodes:             nodes,
		Edges:             edges,
	}
	if err := s.apply(ctx, agent, in); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(agent).Error; err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	s.invalidate(ctx)

	s.log.Info("agent created", zap.Uint("agent_id", agent.ID), zap.String("provider", string(agent.ModelProvider)))
	return agent, nil
}

// UpdateAgent changes only the supplied fields
func (s *Service) UpdateAgent(ctx context.Context, id uint, in AgentInput) (*models.Agent, error) {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, agent, in); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(agent).Error; err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	s.invalidate(ctx)

	return agent, nil
}

// apply validates each supplied field and copies it onto agent
func (s *Service) apply(ctx context.Context, agent *models.Agent, in AgentInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("name cannot be empty")
		}
		agent.Name = name
	}
	if in.Description != nil {
		agent.Description = *in.Description
	}
	if in.PersonalityTraits != nil {
		traits := make([]string, 0, len(in.PersonalityTraits))
		for _, t := range in.PersonalityTraits {
			if t = strings.TrimSpace(t); t != "" {
				traits = append(traits, t)
			}
		}
		agent.PersonalityTraits = traits
	}
	if in.ModelProvider != nil {
		if !in.ModelProvider.Valid() {
			return apperr.Validation("model_provider must be one of openai, xai")
		}
		agent.ModelProvider = *in.ModelProvider
	}
	if in.ModelName != nil {
		model := strings.TrimSpace(*in.ModelName)
		if model == "" {
			return apperr.Validation("model_name cannot be empty")
		}
		agent.ModelName = model
	}
	if in.Temperature != nil {
		if *in.Temperature < 0 || *in.Temperature > 100 {
			return apperr.Validation("temperature must be between 0 and 100")
		}
		agent.Temperature = *in.Temperature
	}
	if in.ImageURL != nil {
		agent.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.TemplateID != nil {
		if _, err := s.GetTemplate(ctx, *in.TemplateID); err != nil {
			return err
		}
		agent.TemplateID = in.TemplateID
	}
	if supplied(in.Nodes) {
		agent.Nodes = datatypes.JSON(in.Nodes)
	}
	if supplied(in.Edges) {
		agent.Edges = datatypes.JSON(in.Edges)
	}
	return nil
}

func supplied(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

// Initialize seeds the premade catalog when the directory is empty. The purge
// of leftover dependent rows and the seed share one transaction.
func (s *Service) Initialize(ctx context.Context) (*InitializeResult, error) {
	result := &InitializeResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", initializeLockKey).Error; err != nil {
				return fmt.Errorf("failed to acquire initialize lock: %w", err)
			}
		}

		var count int64
		if err := tx.Model(&models.Agent{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count agents: %w", err)
		}
		if count > 0 {
			result.Message = "Agents already initialized"
			return nil
		}

		purge := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []interface{}{
			&models.AgentMetric{},
			&models.Feedback{},
			&models.Interaction{},
			&models.ChatMessage{},
			&models.ChatParticipant{},
			&models.DebugEvent{},
			&models.Agent{},
		} {
			if err := purge.Delete(model).Error; err != nil {
				return fmt.Errorf("failed to purge %T: %w", model, err)
			}
		}

		agents := premadeAgents()
		if err := tx.Create(&agents).Error; err != nil {
			return fmt.Errorf("failed to seed agents: %w", err)
		}

		result.Initialized = true
		result.Message = "Agents initialized successfully"
		result.Agents = agents
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Initialized {
		s.invalidate(ctx)
		s.log.Info("premade agents seeded", zap.Int("count", len(result.Agents)))
	}
	return result, nil
}

// ListTemplates returns every template ordered by id
func (s *Service) ListTemplates(ctx context.Context) ([]models.Template, error) {
	templates := make([]models.Template, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch templates: %w", err)
	}
	return templates, nil
}

// GetTemplate returns one template or NotFound
func (s *Service) GetTemplate(ctx context.Context, id uint) (*models.Template, error) {
	var template models.Template
	if err := s.db.WithContext(ctx).First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Template not found")
		}
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}
	return &template, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("failed to invalidate agent cache", zap.Error(err))
	}
}
