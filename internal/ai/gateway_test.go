package ai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"agent-builder/internal/apperr"
	"agent-builder/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []*CompletionRequest
	reply    string
	err      error
}

func (f *fakeClient) Complete(_ context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Content: f.reply, Usage: Usage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14}}, nil
}

type recordedEvent struct {
	chatID  uint
	typ     models.DebugEventType
	message string
	details map[string]interface{}
}

type fakeDebug struct {
	events []recordedEvent
}

func (f *fakeDebug) Record(_ context.Context, chatID uint, eventType models.DebugEventType, message string, details map[string]interface{}) {
	f.events = append(f.events, recordedEvent{chatID: chatID, typ: eventType, message: message, details: details})
}

type fakeInteractions struct {
	rows []*models.Interaction
}

func (f *fakeInteractions) RecordInteraction(_ context.Context, interaction *models.Interaction) {
	f.rows = append(f.rows, interaction)
}

func uintPtr(v uint) *uint { return &v }
func intPtr(v int) *int    { return &v }

func techExpert() AgentDescriptor {
	return AgentDescriptor{
		ID:                uintPtr(2),
		Name:              "Tech Expert",
		ModelProvider:     models.ProviderOpenAI,
		ModelName:         "gpt-4o",
		Temperature:       intPtr(30),
		PersonalityTraits: []string{"Analytical", "Technical", "Detail-oriented"},
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	tests := []struct {
		name   string
		agent  string
		traits []string
		want   string
	}{
		{
			name:   "traits joined",
			agent:  "Creative Writer",
			traits: []string{"Creative", "Imaginative", "Supportive"},
			want:   "You are Creative Writer, an AI assistant with the following traits: Creative, Imaginative, Supportive. Respond in a way that reflects these personality traits.",
		},
		{name: "no traits", agent: "Blank", traits: nil, want: "You are a helpful AI assistant."},
		{name: "blank traits", agent: "Blank", traits: []string{" ", ""}, want: "You are a helpful AI assistant."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSystemPrompt(tt.agent, tt.traits))
		})
	}
}

func TestScaleTemperature(t *testing.T) {
	assert.InDelta(t, 0.7, ScaleTemperature(nil), 0.0001)
	assert.InDelta(t, 0.0, ScaleTemperature(intPtr(0)), 0.0001)
	assert.InDelta(t, 0.55, ScaleTemperature(intPtr(55)), 0.0001)
	assert.InDelta(t, 1.0, ScaleTemperature(intPtr(100)), 0.0001)
	assert.InDelta(t, 1.0, ScaleTemperature(intPtr(250)), 0.0001)
}

func TestGatewayChatSuccess(t *testing.T) {
	client := &fakeClient{reply: "Use a mutex."}
	debug := &fakeDebug{}
	interactions := &fakeInteractions{}
	gw := NewGateway(NewAIRouterWithClients(map[models.ModelProvider]CompletionClient{
		models.ProviderOpenAI: client,
	}), debug, interactions)

	result, err := gw.Chat(context.Background(), &ChatRequest{
		Agent:    techExpert(),
		Messages: []Message{{Role: "user", Content: "How do I guard a map?"}},
		ChatID:   uintPtr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "Use a mutex.", result.Content)

	require.Len(t, client.requests, 1)
	sent := client.requests[0]
	assert.Equal(t, "gpt-4o", sent.Model)
	assert.InDelta(t, 0.3, sent.Temperature, 0.0001)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Contains(t, sent.Messages[0].Content, "You are Tech Expert")
	assert.Equal(t, "How do I guard a map?", sent.Messages[1].Content)

	require.Len(t, debug.events, 1)
	assert.Equal(t, uint(7), debug.events[0].chatID)
	assert.Equal(t, models.DebugSuccess, debug.events[0].typ)
	assert.Equal(t, "openai", debug.events[0].details["provider"])
	assert.Equal(t, "gpt-4o", debug.events[0].details["model"])

	require.Len(t, interactions.rows, 1)
	assert.True(t, interactions.rows[0].Success)
	assert.Equal(t, uint(2), interactions.rows[0].AgentID)
	assert.Equal(t, 14, interactions.rows[0].Tokens)
}

func TestGatewayWithoutChatIDWritesNoDebugEvent(t *testing.T) {
	debug := &fakeDebug{}
	gw := NewGateway(NewAIRouterWithClients(map[models.ModelProvider]CompletionClient{
		models.ProviderOpenAI: &fakeClient{reply: "ok"},
	}), debug, nil)

	_, err := gw.Chat(context.Background(), &ChatRequest{
		Agent:    techExpert(),
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Empty(t, debug.events)
}

func TestGatewayMissingKeyIsSanitizedConfigurationError(t *testing.T) {
	debug := &fakeDebug{}
	gw := NewGateway(NewAIRouter(RouterConfig{}), debug, nil)

	_, err := gw.Chat(context.Background(), &ChatRequest{
		Agent:    techExpert(),
		Messages: []Message{{Role: "user", Content: "hi"}},
		ChatID:   uintPtr(3),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Equal(t, MsgNotConfigured, apperr.PublicMessage(err, ""))

	require.Len(t, debug.events, 1)
	assert.Equal(t, models.DebugError, debug.events[0].typ)
	assert.Equal(t, "missing_api_key", debug.events[0].details["error_code"])
}

func TestGatewayUpstreamFailureNeverLeaksCause(t *testing.T) {
	debug := &fakeDebug{}
	interactions := &fakeInteractions{}
	cause := errors.New("401 Unauthorized: Incorrect API key provided: sk-live-abcdef")
	gw := NewGateway(NewAIRouterWithClients(map[models.ModelProvider]CompletionClient{
		models.ProviderOpenAI: &fakeClient{err: cause},
	}), debug, interactions)

	_, err := gw.Chat(context.Background(), &ChatRequest{
		Agent:    techExpert(),
		Messages: []Message{{Role: "user", Content: "hi"}},
		ChatID:   uintPtr(3),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.Equal(t, MsgRequestFailed, apperr.PublicMessage(err, ""))

	require.Len(t, debug.events, 1)
	assert.Equal(t, models.DebugError, debug.events[0].typ)
	for key, v := range debug.events[0].details {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "sk-live", key)
		}
	}

	require.Len(t, interactions.rows, 1)
	assert.False(t, interactions.rows[0].Success)
	assert.Equal(t, "upstream_unreachable", interactions.rows[0].ErrorCode)
}

func TestGatewayFallbackSubstitutesModel(t *testing.T) {
	openaiClient := &fakeClient{reply: "served by fallback"}
	router := NewAIRouterWithClients(map[models.ModelProvider]CompletionClient{
		models.ProviderOpenAI: openaiClient,
	})
	router.SetFallback(models.ProviderXAI, models.ProviderOpenAI, "gpt-4o")
	debug := &fakeDebug{}
	gw := NewGateway(router, debug, nil)

	agent := techExpert()
	agent.ModelProvider = models.ProviderXAI
	agent.ModelName = "grok-2-1212"

	result, err := gw.Chat(context.Background(), &ChatRequest{
		Agent:    agent,
		Messages: []Message{{Role: "user", Content: "hi"}},
		ChatID:   uintPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "served by fallback", result.Content)
	assert.Equal(t, models.ProviderOpenAI, result.Provider)
	assert.Equal(t, "gpt-4o", openaiClient.requests[0].Model)

	require.Len(t, debug.events, 1)
	assert.Equal(t, "xai", debug.events[0].details["requested_provider"])
	assert.Equal(t, "grok-2-1212", debug.events[0].details["requested_model"])
}

func TestGatewayRejectsEmptyHistory(t *testing.T) {
	client := &fakeClient{reply: "unused"}
	gw := NewGateway(NewAIRouterWithClients(map[models.ModelProvider]CompletionClient{
		models.ProviderOpenAI: client,
	}), nil, nil)

	_, err := gw.Chat(context.Background(), &ChatRequest{Agent: techExpert()})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, client.requests)
}
