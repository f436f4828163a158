package ai

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client-facing failure messages. Neither carries upstream or credential text.
const (
	MsgNotConfigured = "AI service is not configured"
	MsgRequestFailed = "AI service request failed"
)

const (
	defaultSystemPrompt = "You are a helpful AI assistant."
	defaultTemperature  = 0.7
)

// Gateway turns an agent descriptor plus history into one assistant reply
type Gateway struct {
	router       *AIRouter
	debug        DebugRecorder
	interactions InteractionRecorder
	metrics      *metrics.AIMetricsRecorder
	log          *zap.Logger
}

// NewGateway creates a gateway. debug and interactions may be nil.
func NewGateway(router *AIRouter, debug DebugRecorder, interactions InteractionRecorder) *Gateway {
	return &Gateway{
		router:       router,
		debug:        debug,
		interactions: interactions,
		metrics:      metrics.NewAIMetricsRecorder(),
		log:          logging.Named("ai"),
	}
}

// BuildSystemPrompt renders the persona prompt for an agent
func BuildSystemPrompt(name string, traits []string) string {
	cleaned := make([]string, 0, len(traits))
	for _, t := range traits {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return defaultSystemPrompt
	}
	return fmt.Sprintf(
		"You are %s, an AI assistant with the following traits: %s. Respond in a way that reflects these personality traits.",
		name, strings.Join(cleaned, ", "),
	)
}

// ScaleTemperature maps the stored 0-100 value onto the 0.0-1.0 sampling range
func ScaleTemperature(stored *int) float32 {
	if stored == nil {
		return defaultTemperature
	}
	v := *stored
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return float32(v) / 100
}

// Chat resolves the backend for req.Agent and returns the upstream reply
func (g *Gateway) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	requestID := uuid.New().String()
	agent := req.Agent

	if len(req.Messages) == 0 {
		err := apperr.Validation("messages are required")
		g.recordDebug(ctx, req, models.DebugError, "AI request rejected", map[string]interface{}{
			"provider":   string(agent.ModelProvider),
			"model":      agent.ModelName,
			"error_code": "invalid_request",
		})
		return nil, err
	}

	route, err := g.router.Resolve(agent.ModelProvider, agent.ModelName)
	if err != nil {
		code := "invalid_request"
		if errors.Is(err, apperr.ErrConfiguration) {
			code = "missing_api_key"
			g.log.Warn("AI backend not configured",
				zap.String("request_id", requestID),
				zap.String("provider", string(agent.ModelProvider)),
				zap.Error(err),
			)
			err = apperr.Wrap(apperr.ErrConfiguration, err, MsgNotConfigured)
		}
		g.recordDebug(ctx, req, models.DebugError, "AI request failed", map[string]interface{}{
			"provider":   string(agent.ModelProvider),
			"model":      agent.ModelName,
			"error_code": code,
		})
		return nil, err
	}

	if route.Model == "" {
		err := apperr.Validation("agent model_name is required")
		g.recordDebug(ctx, req, models.DebugError, "AI request rejected", map[string]interface{}{
			"provider":   string(route.Tagged),
			"error_code": "invalid_request",
		})
		return nil, err
	}

	if route.Fallback {
		g.metrics.RecordFallback(string(route.Tagged), string(route.Backend))
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	messages = append(messages, Message{Role: "system", Content: BuildSystemPrompt(agent.Name, agent.PersonalityTraits)})
	messages = append(messages, req.Messages...)

	provider := string(route.Backend)
	g.metrics.StartRequest(provider)
	start := time.Now()
	resp, callErr := route.Client.Complete(ctx, &CompletionRequest{
		Model:       route.Model,
		Messages:    messages,
		Temperature: ScaleTemperature(agent.Temperature),
	})
	elapsed := time.Since(start)
	g.metrics.EndRequest(provider)

	details := map[string]interface{}{
		"provider": provider,
		"model":    route.Model,
	}
	if route.Fallback {
		details["requested_provider"] = string(route.Tagged)
		details["requested_model"] = agent.ModelName
	}

	if callErr != nil {
		code := upstreamErrorCode(callErr)
		g.metrics.RecordRequest(provider, route.Model, false, elapsed, 0, 0)
		g.log.Error("AI completion failed",
			zap.String("request_id", requestID),
			zap.String("provider", provider),
			zap.String("model", route.Model),
			zap.String("error_code", code),
			zap.Duration("elapsed", elapsed),
			zap.Error(callErr),
		)

		details["error_code"] = code
		g.recordDebug(ctx, req, models.DebugError, "AI request failed", details)
		g.recordInteraction(ctx, req, route, elapsed, false, 0, code)
		return nil, apperr.Upstream(callErr, MsgRequestFailed)
	}

	g.metrics.RecordRequest(provider, route.Model, true, elapsed, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	g.log.Debug("AI completion succeeded",
		zap.String("request_id", requestID),
		zap.String("provider", provider),
		zap.String("model", route.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", elapsed),
	)

	details["response_time_ms"] = elapsed.Milliseconds()
	g.recordDebug(ctx, req, models.DebugSuccess, "AI response generated", details)
	interactionID := g.recordInteraction(ctx, req, route, elapsed, true, resp.Usage.TotalTokens, "")

	return &ChatResult{
		Content:       resp.Content,
		InteractionID: interactionID,
		Provider:      route.Backend,
		Model:         route.Model,
		Usage:         resp.Usage,
	}, nil
}

func (g *Gateway) recordDebug(ctx context.Context, req *ChatRequest, eventType models.DebugEventType, message string, details map[string]interface{}) {
	if g.debug == nil || req.ChatID == nil {
		return
	}
	if req.Agent.ID != nil {
		details["agent_id"] = *req.Agent.ID
	}
	g.debug.Record(ctx, *req.ChatID, eventType, message, details)
}

// recordInteraction returns the stored interaction id, or 0 when nothing was
// stored
func (g *Gateway) recordInteraction(ctx context.Context, req *ChatRequest, route *Route, elapsed time.Duration, success bool, tokens int, code string) uint {
	if g.interactions == nil || req.Agent.ID == nil {
		return 0
	}
	interaction := &models.Interaction{
		AgentID:        *req.Agent.ID,
		ChatID:         req.ChatID,
		Provider:       string(route.Backend),
		Model:          route.Model,
		ResponseTimeMS: elapsed.Milliseconds(),
		Success:        success,
		Tokens:         tokens,
		ErrorCode:      code,
	}
	g.interactions.RecordInteraction(ctx, interaction)
	return interaction.ID
}
