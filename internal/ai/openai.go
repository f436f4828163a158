package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// XAIBaseURL is xAI's OpenAI-compatible endpoint
const XAIBaseURL = "https://api.x.ai/v1"

// ErrEmptyCompletion is returned when the upstream answers without choices
var ErrEmptyCompletion = errors.New("completion returned no choices")

// OpenAIClient implements CompletionClient for any OpenAI-compatible API
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client for apiKey. An empty baseURL keeps the
// library default (api.openai.com).
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	return NewOpenAIClientWithHTTP(apiKey, baseURL, nil)
}

// NewOpenAIClientWithHTTP is NewOpenAIClient with a caller supplied http.Client
func NewOpenAIClientWithHTTP(apiKey, baseURL string, httpClient *http.Client) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	return &OpenAIClient{client: openai.NewClientWithConfig(config)}
}

// Complete sends a single non-streaming chat completion
func (o *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	// go-openai drops a zero temperature from the payload, which the API
	// would read as its default of 1.0.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// upstreamErrorCode reduces an upstream failure to a code that is safe to store
// and show. It never includes the upstream message body.
func upstreamErrorCode(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return fmt.Sprintf("upstream_status_%d", apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return fmt.Sprintf("upstream_status_%d", reqErr.HTTPStatusCode)
	}

	switch {
	case errors.Is(err, ErrEmptyCompletion):
		return "empty_completion"
	case errors.Is(err, context.Canceled):
		return "request_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request_timeout"
	}
	return "upstream_unreachable"
}
