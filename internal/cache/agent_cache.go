package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agent-builder/pkg/models"

	"github.com/google/uuid"
)

const (
	agentListKey       = "agent-builder:agents:list"
	agentGenerationKey = "agent-builder:agents:generation"
)

// agentListEntry is a cached listing stamped with the generation it was
// loaded under
type agentListEntry struct {
	Generation string         `json:"generation"`
	Agents     []models.Agent `json:"agents"`
}

// AgentCache caches the full agent directory listing. Any directory write must
// call Invalidate. Invalidate bumps a generation key, and entries loaded under
// an older generation read as misses, so a load that overlaps a write never
// serves the pre-write listing afterwards.
type AgentCache struct {
	store Store
	ttl   time.Duration
}

// NewAgentCache creates an agent cache over store. A nil store disables caching.
func NewAgentCache(store Store, ttl time.Duration) *AgentCache {
	return &AgentCache{store: store, ttl: ttl}
}

func (c *AgentCache) generation(ctx context.Context) (string, error) {
	raw, err := c.store.Get(ctx, agentGenerationKey)
	if errors.Is(err, ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetAgents returns the cached listing, or ErrCacheMiss
func (c *AgentCache) GetAgents(ctx context.Context) ([]models.Agent, error) {
	if c == nil || c.store == nil {
		return nil, ErrCacheMiss
	}

	gen, err := c.generation(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.store.Get(ctx, agentListKey)
	if err != nil {
		return nil, err
	}

	var entry agentListEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Generation != gen {
		return nil, ErrCacheMiss
	}
	return entry.Agents, nil
}

func (c *AgentCache) setAgents(ctx context.Context, gen string, agents []models.Agent) error {
	raw, err := json.Marshal(agentListEntry{Generation: gen, Agents: agents})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, agentListKey, raw, c.ttl)
}

// Invalidate starts a new generation and drops the cached listing
func (c *AgentCache) Invalidate(ctx context.Context) error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := c.store.Set(ctx, agentGenerationKey, []byte(uuid.NewString()), 0); err != nil {
		return err
	}
	return c.store.Del(ctx, agentListKey)
}

// GetOrLoadAgents reads through the cache. Cache failures fall back to loader
// and are otherwise ignored.
func (c *AgentCache) GetOrLoadAgents(ctx context.Context, loader func() ([]models.Agent, error)) ([]models.Agent, error) {
	if c == nil || c.store == nil {
		return loader()
	}
	if cached, err := c.GetAgents(ctx); err == nil {
		return cached, nil
	}

	gen, genErr := c.generation(ctx)

	agents, err := loader()
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		_ = c.setAgents(ctx, gen, agents)
	}
	return agents, nil
}
