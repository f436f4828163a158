package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load agent: %w", NotFound("Agent %d not found", 7))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "Agent 7 not found", PublicMessage(err, "fallback"))
}

func TestUpstreamKeepsCauseOutOfPublicMessage(t *testing.T) {
	cause := errors.New("401 invalid key sk-secret")
	err := Upstream(cause, "AI service request failed")

	assert.True(t, errors.Is(err, ErrUpstream))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "AI service request failed", PublicMessage(err, ""))
	assert.Contains(t, err.Error(), "sk-secret")
}

func TestPublicMessageFallback(t *testing.T) {
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("boom"), "Internal server error"))
}
