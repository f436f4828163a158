// Package ai relays agent conversations to hosted chat completion APIs.
package ai

import (
	"context"

	"agent-builder/pkg/models"
)

// Message is one turn of conversation history
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentDescriptor is the subset of an agent the gateway needs. ID is optional;
// when present the call is recorded against that agent's analytics.
type AgentDescriptor struct {
	ID                *uint                `json:"id,omitempty"`
	Name              string               `json:"name"`
	ModelProvider     models.ModelProvider `json:"model_provider"`
	ModelName         string               `json:"model_name"`
	Temperature       *int                 `json:"temperature,omitempty"`
	PersonalityTraits []string             `json:"personality_traits"`
}

// ChatRequest is the gateway input
type ChatRequest struct {
	Agent    AgentDescriptor `json:"agent"`
	Messages []Message       `json:"messages"`
	ChatID   *uint           `json:"chatId,omitempty"`
}

// ChatResult is the gateway output. InteractionID is set when the call was
// recorded for analytics and can be rated through the feedback endpoint.
type ChatResult struct {
	Content       string               `json:"content"`
	InteractionID uint                 `json:"interaction_id,omitempty"`
	Provider      models.ModelProvider `json:"-"`
	Model         string               `json:"-"`
	Usage         Usage                `json:"-"`
}

// Usage reports token counts returned by the upstream
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is what a backend receives once routing has resolved the model
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
}

// CompletionResponse is a backend's reply
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// CompletionClient is an upstream chat completion backend
type CompletionClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// DebugRecorder receives one best-effort event per gateway call with a chat id
type DebugRecorder interface {
	Record(ctx context.Context, chatID uint, eventType models.DebugEventType, message string, details map[string]interface{})
}

// InteractionRecorder receives one best-effort interaction per call that names an agent id
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, interaction *models.Interaction)
}
