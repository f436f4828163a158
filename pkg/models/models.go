package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModelProvider identifies the upstream language-model backend of an agent
type ModelProvider string

const (
	ProviderOpenAI ModelProvider = "openai"
	ProviderXAI    ModelProvider = "xai"
)

// Valid reports whether p is one of the supported providers
func (p ModelProvider) Valid() bool {
	return p == ProviderOpenAI || p == ProviderXAI
}

// ParticipantRole is the role an agent holds inside a collaborative chat
type ParticipantRole string

const (
	RoleModerator   ParticipantRole = "moderator"
	RoleParticipant ParticipantRole = "participant"
)

// Valid reports whether r is a known participant role
func (r ParticipantRole) Valid() bool {
	return r == RoleModerator || r == RoleParticipant
}

// DebugEventType classifies an entry of the chat debug log
type DebugEventType string

const (
	DebugError   DebugEventType = "error"
	DebugSuccess DebugEventType = "success"
	DebugInfo    DebugEventType = "info"
)

// Valid reports whether t is a known debug event type
func (t DebugEventType) Valid() bool {
	return t == DebugError || t == DebugSuccess || t == DebugInfo
}

// Template is a starter flow graph agents can be built from
type Template struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description" gorm:"not null"`
	Nodes       datatypes.JSON `json:"nodes" gorm:"not null"`
	Edges       datatypes.JSON `json:"edges" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Agent is a configured AI persona
type Agent struct {
	ID          uint   `json:"id" gorm:"primarykey"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`

	// Personality and model selection
	PersonalityTraits []string      `json:"personality_traits" gorm:"serializer:json"`
	ModelProvider     ModelProvider `json:"model_provider" gorm:"not null"`
	ModelName         string        `json:"model_name" gorm:"not null"`
	Temperature       int           `json:"temperature"` // 0-100, scaled to 0.0-1.0 upstream
	ImageURL          string        `json:"image_url,omitempty"`

	// Visual flow graph, opaque to the server
	TemplateID *uint          `json:"template_id,omitempty" gorm:"index"`
	Template   *Template      `json:"-" gorm:"foreignKey:TemplateID"`
	Nodes      datatypes.JSON `json:"nodes" gorm:"not null"`
	Edges      datatypes.JSON `json:"edges" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollaborativeChat is a session where several agents exchange messages
type CollaborativeChat struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Participants []ChatParticipant `json:"participants,omitempty" gorm:"foreignKey:ChatID"`
	Messages     []ChatMessage     `json:"messages,omitempty" gorm:"foreignKey:ChatID"`
}

// ChatParticipant authorizes an agent to post into a chat
type ChatParticipant struct {
	ID        uint            `json:"id" gorm:"primarykey"`
	ChatID    uint            `json:"chat_id" gorm:"not null;uniqueIndex:idx_chat_participants_chat_agent,priority:1"`
	AgentID   uint            `json:"agent_id" gorm:"not null;uniqueIndex:idx_chat_participants_chat_agent,priority:2"`
	Role      ParticipantRole `json:"role" gorm:"not null"`
	Agent     *Agent          `json:"agent,omitempty" gorm:"foreignKey:AgentID"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChatMessage is one append-only message inside a collaborative chat
type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ChatID    uint      `json:"chat_id" gorm:"not null;index:idx_chat_messages_chat_created,priority:1"`
	AgentID   uint      `json:"agent_id" gorm:"not null;index"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Agent     *Agent    `json:"agent,omitempty" gorm:"foreignKey:AgentID"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_messages_chat_created,priority:2"`
}

// DebugEvent is an append-only audit record scoped to a chat
type DebugEvent struct {
	ID        uint              `json:"id" gorm:"primarykey"`
	ChatID    uint              `json:"chat_id" gorm:"not null;index:idx_debug_events_chat_created,priority:1"`
	Type      DebugEventType    `json:"type" gorm:"not null"`
	Message   string            `json:"message" gorm:"type:text;not null"`
	Details   datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt time.Time         `json:"timestamp" gorm:"index:idx_debug_events_chat_created,priority:2"`
}

// Interaction records one gateway completion made on behalf of an agent
type Interaction struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	AgentID        uint      `json:"agent_id" gorm:"not null;index"`
	ChatID         *uint     `json:"chat_id,omitempty" gorm:"index"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Success        bool      `json:"success"`
	Tokens         int       `json:"tokens"`
	ErrorCode      string    `json:"error_code,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// Feedback is a user rating of an interaction
type Feedback struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	InteractionID uint      `json:"interaction_id" gorm:"not null;index"`
	AgentID       uint      `json:"agent_id" gorm:"not null;index"`
	Rating        int       `json:"rating" gorm:"not null"`
	Comment       string    `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName keeps the singular table name
func (Feedback) TableName() string { return "feedback" }

// Metric types recorded for agents
const (
	MetricResponseTime = "response_time"
	MetricTokens       = "tokens"
)

// AgentMetric is a single time-series sample for an agent
type AgentMetric struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	AgentID    uint      `json:"agent_id" gorm:"not null;index"`
	MetricType string    `json:"metric_type" gorm:"not null"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"timestamp" gorm:"not null;index"`
}

// All returns every persisted model in dependency order
func All() []interface{} {
	return []interface{}{
		&Template{},
		&Agent{},
		&CollaborativeChat{},
		&ChatParticipant{},
		&ChatMessage{},
		&DebugEvent{},
		&Interaction{},
		&Feedback{},
		&AgentMetric{},
	}
}
