// Package integrations prepares agents for external channels: Telegram bots
// and GitHub repository exports.
package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"agent-builder/internal/apperr"
	"agent-builder/pkg/models"
)

var (
	telegramTokenPattern = regexp.MustCompile(`^\d+:[\w-]{35,}$`)
	repoNamePattern      = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)
	whitespace           = regexp.MustCompile(`\s+`)
)

// AgentLookup resolves an agent by id, returning apperr NotFound when absent
type AgentLookup interface {
	GetAgent(ctx context.Context, id uint) (*models.Agent, error)
}

// TelegramBot is the result of provisioning a bot for an agent
type TelegramBot struct {
	Message     string `json:"message"`
	BotUsername string `json:"bot_username"`
}

// ExportFile is one file of a GitHub export
type ExportFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// GitHubExport is the manifest a client pushes to a new repository
type GitHubExport struct {
	Message  string       `json:"message"`
	RepoName string       `json:"repo_name"`
	Files    []ExportFile `json:"files"`
}

// Service implements the integration endpoints
type Service struct {
	agents AgentLookup
}

// NewService creates a new integrations service
func NewService(agents AgentLookup) *Service {
	return &Service{agents: agents}
}

// CreateTelegramBot validates token and derives the bot username. The token is
// not persisted.
func (s *Service) CreateTelegramBot(ctx context.Context, agentID uint, token string) (*TelegramBot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation("Telegram bot token is required")
	}

	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if !telegramTokenPattern.MatchString(token) {
		return nil, apperr.Validation("Invalid Telegram bot token format")
	}

	return &TelegramBot{
		Message:     "Telegram bot created successfully",
		BotUsername: BotUsername(agent.Name),
	}, nil
}

// BotUsername lowercases name and joins whitespace runs with underscores
func BotUsername(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "_") + "_bot"
}

// ExportToGitHub builds the repository contents for an agent
func (s *Service) ExportToGitHub(ctx context.Context, agentID uint, repoName string) (*GitHubExport, error) {
	repoName = strings.TrimSpace(repoName)
	if !ValidRepoName(repoName) {
		return nil, apperr.Validation("Invalid repository name")
	}

	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	agentJSON, err := json.MarshalIndent(exportedAgent{
		Name:              agent.Name,
		Description:       agent.Description,
		PersonalityTraits: agent.PersonalityTraits,
		ModelProvider:     agent.ModelProvider,
		ModelName:         agent.ModelName,
		Temperature:       agent.Temperature,
		Nodes:             json.RawMessage(orEmptyArray(agent.Nodes)),
		Edges:             json.RawMessage(orEmptyArray(agent.Edges)),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent: %w", err)
	}

	return &GitHubExport{
		Message:  "GitHub export prepared",
		RepoName: repoName,
		Files: []ExportFile{
			{Path: "agent.json", Content: string(agentJSON) + "\n"},
			{Path: "README.md", Content: readme(agent)},
		},
	}, nil
}

// ValidRepoName reports whether name is an acceptable GitHub repository name
func ValidRepoName(name string) bool {
	return repoNamePattern.MatchString(name) && name != "." && name != ".."
}

type exportedAgent struct {
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	PersonalityTraits []string             `json:"personality_traits"`
	ModelProvider     models.ModelProvider `json:"model_provider"`
	ModelName         string               `json:"model_name"`
	Temperature       int                  `json:"temperature"`
	Nodes             json.RawMessage      `json:"nodes"`
	Edges             json.RawMessage      `json:"edges"`
}

func orEmptyArray(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("[]")
	}
	return raw
}

func readme(agent *models.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", agent.Name)
	if agent.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", agent.Description)
	}
	fmt.Fprintf(&b, "- Provider: %s\n", agent.ModelProvider)
	fmt.Fprintf(&b, "- Model: %s\n", agent.ModelName)
	fmt.Fprintf(&b, "- Temperature: %d/100\n", agent.Temperature)
	if len(agent.PersonalityTraits) > 0 {
		fmt.Fprintf(&b, "- Traits: %s\n", strings.Join(agent.PersonalityTraits, ", "))
	}
	b.WriteString("\nThe agent definition and flow graph live in `agent.json`.\n")
	return b.String()
}
