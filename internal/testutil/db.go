// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"testing"

	"agent-builder/internal/db"
	"agent-builder/pkg/models"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database closed at test end
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := db.NewDatabase(&db.Config{
		Driver:     db.DriverSQLite,
		SQLitePath: ":memory:",
		LogLevel:   logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	return database.DB
}

// CreateAgent inserts a minimal openai agent
func CreateAgent(t *testing.T, gdb *gorm.DB, name string) *models.Agent {
	t.Helper()

	agent := &models.Agent{
		Name:              name,
		Description:       name + " test agent",
		PersonalityTraits: []string{"Helpful"},
		ModelProvider:     models.ProviderOpenAI,
		ModelName:         "gpt-4o",
		Temperature:       70,
		Nodes:             datatypes.JSON("[]"),
		Edges:             datatypes.JSON("[]"),
	}
	require.NoError(t, gdb.Create(agent).Error)
	return agent
}

// CreateChat inserts a chat with no participants
func CreateChat(t *testing.T, gdb *gorm.DB, name string) *models.CollaborativeChat {
	t.Helper()

	chat := &models.CollaborativeChat{Name: name}
	require.NoError(t, gdb.Create(chat).Error)
	return chat
}

// AddParticipant links agent to chat
func AddParticipant(t *testing.T, gdb *gorm.DB, chatID, agentID uint) {
	t.Helper()

	require.NoError(t, gdb.Create(&models.ChatParticipant{
		ChatID:  chatID,
		AgentID: agentID,
		Role:    models.RoleParticipant,
	}).Error)
}
