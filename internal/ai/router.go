package ai

import (
	"fmt"
	"strings"
	"sync"

	"agent-builder/internal/apperr"
	"agent-builder/pkg/models"
)

// RouterConfig configures the provider backends
type RouterConfig struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	XAIAPIKey     string
	XAIBaseURL    string

	// XAIFallbackToOpenAI serves xai-tagged agents through the OpenAI backend
	// with XAIFallbackModel when no xAI key is configured.
	XAIFallbackToOpenAI bool
	XAIFallbackModel    string
}

// Route is the resolved destination of a request
type Route struct {
	Tagged   models.ModelProvider
	Backend  models.ModelProvider
	Model    string
	Client   CompletionClient
	Fallback bool
}

// AIRouter maps an agent's provider tag to a configured backend
type AIRouter struct {
	mu       sync.RWMutex
	clients  map[models.ModelProvider]CompletionClient
	fallback map[models.ModelProvider]fallbackRoute
}

type fallbackRoute struct {
	backend models.ModelProvider
	model   string
}

// NewAIRouter builds one go-openai backed client per provider that has a key
func NewAIRouter(cfg RouterConfig) *AIRouter {
	r := NewAIRouterWithClients(nil)

	if cfg.OpenAIAPIKey != "" {
		r.SetClient(models.ProviderOpenAI, NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	}
	if cfg.XAIAPIKey != "" {
		baseURL := cfg.XAIBaseURL
		if baseURL == "" {
			baseURL = XAIBaseURL
		}
		r.SetClient(models.ProviderXAI, NewOpenAIClient(cfg.XAIAPIKey, baseURL))
	}
	if cfg.XAIFallbackToOpenAI {
		model := cfg.XAIFallbackModel
		if model == "" {
			model = "gpt-4o"
		}
		r.SetFallback(models.ProviderXAI, models.ProviderOpenAI, model)
	}

	return r
}

// NewAIRouterWithClients builds a router over explicit backends
func NewAIRouterWithClients(clients map[models.ModelProvider]CompletionClient) *AIRouter {
	r := &AIRouter{
		clients:  make(map[models.ModelProvider]CompletionClient),
		fallback: make(map[models.ModelProvider]fallbackRoute),
	}
	for provider, client := range clients {
		r.clients[provider] = client
	}
	return r
}

// SetClient registers the backend for provider
func (r *AIRouter) SetClient(provider models.ModelProvider, client CompletionClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[provider] = client
}

// SetFallback serves requests tagged from through the to backend with model
// substituted, used only while from has no backend of its own.
func (r *AIRouter) SetFallback(from, to models.ModelProvider, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback[from] = fallbackRoute{backend: to, model: model}
}

// Resolve picks the backend and model for an agent
func (r *AIRouter) Resolve(provider models.ModelProvider, model string) (*Route, error) {
	if !provider.Valid() {
		return nil, apperr.Validation("unknown model provider %q", provider)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if client, ok := r.clients[provider]; ok {
		return &Route{Tagged: provider, Backend: provider, Model: model, Client: client}, nil
	}

	if fb, ok := r.fallback[provider]; ok {
		if client, ok := r.clients[fb.backend]; ok {
			return &Route{Tagged: provider, Backend: fb.backend, Model: fb.model, Client: client, Fallback: true}, nil
		}
		return nil, apperr.Configuration("%s is not set", EnvKeyName(fb.backend))
	}

	return nil, apperr.Configuration("%s is not set", EnvKeyName(provider))
}

// Providers lists the providers with a configured backend
func (r *AIRouter) Providers() []models.ModelProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]models.ModelProvider, 0, len(r.clients))
	for _, p := range []models.ModelProvider{models.ProviderOpenAI, models.ProviderXAI} {
		if _, ok := r.clients[p]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}

// EnvKeyName is the credential variable for provider, e.g. OPENAI_API_KEY
func EnvKeyName(provider models.ModelProvider) string {
	return fmt.Sprintf("%s_API_KEY", strings.ToUpper(string(provider)))
}
