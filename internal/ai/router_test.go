package ai

import (
	"testing"

	"agent-builder/internal/apperr"
	"agent-builder/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUsesTaggedBackend(t *testing.T) {
	openaiClient := &fakeClient{}
	xaiClient := &fakeClient{}
	r := NewAIRouterWithClients(map[models.ModelProvider]CompletionClient{
		models.ProviderOpenAI: openaiClient,
		models.ProviderXAI:    xaiClient,
	})

	route, err := r.Resolve(models.ProviderXAI, "grok-2-1212")
	require.NoError(t, err)

	assert.Same(t, xaiClient, route.Client)
	assert.Equal(t, models.ProviderXAI, route.Backend)
	assert.Equal(t, "grok-2-1212", route.Model)
	assert.False(t, route.Fallback)
}

func TestResolveMissingKeyIsConfigurationError(t *testing.T) {
	r := NewAIRouter(RouterConfig{OpenAIAPIKey: "sk-test"})

	_, err := r.Resolve(models.ProviderXAI, "grok-2-1212")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "XAI_API_KEY")
}

func TestResolveUnknownProviderIsValidationError(t *testing.T) {
	r := NewAIRouterWithClients(nil)

	_, err := r.Resolve(models.ModelProvider("anthropic"), "claude")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestResolveFallbackIsOptIn(t *testing.T) {
	withoutFallback := NewAIRouter(RouterConfig{OpenAIAPIKey: "sk-test"})
	_, err := withoutFallback.Resolve(models.ProviderXAI, "grok-2-1212")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	withFallback := NewAIRouter(RouterConfig{
		OpenAIAPIKey:        "sk-test",
		XAIFallbackToOpenAI: true,
		XAIFallbackModel:    "gpt-4o-mini",
	})
	route, err := withFallback.Resolve(models.ProviderXAI, "grok-2-1212")
	require.NoError(t, err)

	assert.True(t, route.Fallback)
	assert.Equal(t, models.ProviderXAI, route.Tagged)
	assert.Equal(t, models.ProviderOpenAI, route.Backend)
	assert.Equal(t, "gpt-4o-mini", route.Model)
}

func TestResolveFallbackPrefersNativeBackend(t *testing.T) {
	r := NewAIRouter(RouterConfig{
		OpenAIAPIKey:        "sk-test",
		XAIAPIKey:           "xai-test",
		XAIFallbackToOpenAI: true,
	})

	route, err := r.Resolve(models.ProviderXAI, "grok-2-1212")
	require.NoError(t, err)
	assert.False(t, route.Fallback)
	assert.Equal(t, models.ProviderXAI, route.Backend)
	assert.Equal(t, []models.ModelProvider{models.ProviderOpenAI, models.ProviderXAI}, r.Providers())
}

func TestResolveFallbackWithoutPrimaryKey(t *testing.T) {
	r := NewAIRouter(RouterConfig{XAIFallbackToOpenAI: true})

	_, err := r.Resolve(models.ProviderXAI, "grok-2-1212")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestEnvKeyName(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", EnvKeyName(models.ProviderOpenAI))
	assert.Equal(t, "XAI_API_KEY", EnvKeyName(models.ProviderXAI))
}
