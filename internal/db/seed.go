package db

import (
	"fmt"

	"agent-builder/internal/logging"
	"agent-builder/pkg/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// starterTemplates are the flow graphs offered in the builder's template picker
func starterTemplates() []models.Template {
	return []models.Template{
		{
			Name:        "Conversational Assistant",
			Description: "A single input node wired straight to a language model response.",
			Nodes: datatypes.JSON(`[{"id":"1","type":"input","data":{"label":"Input"},"position":{"x":250,"y":25}},` +
				`{"id":"2","data":{"label":"LLM"},"position":{"x":250,"y":125}},` +
				`{"id":"3","type":"output","data":{"label":"Response"},"position":{"x":250,"y":225}}]`),
			Edges: datatypes.JSON(`[{"id":"e1-2","source":"1","target":"2"},{"id":"e2-3","source":"2","target":"3"}]`),
		},
		{
			Name:        "Research Pipeline",
			Description: "Input, retrieval and summarisation steps before the final answer.",
			Nodes: datatypes.JSON(`[{"id":"1","type":"input","data":{"label":"Question"},"position":{"x":250,"y":25}},` +
				`{"id":"2","data":{"label":"Search"},"position":{"x":100,"y":125}},` +
				`{"id":"3","data":{"label":"Summarise"},"position":{"x":400,"y":125}},` +
				`{"id":"4","type":"output","data":{"label":"Answer"},"position":{"x":250,"y":225}}]`),
			Edges: datatypes.JSON(`[{"id":"e1-2","source":"1","target":"2"},{"id":"e2-3","source":"2","target":"3"},{"id":"e3-4","source":"3","target":"4"}]`),
		},
		{
			Name:        "Blank Canvas",
			Description: "Only an input node; build the flow from scratch.",
			Nodes:       datatypes.JSON(`[{"id":"1","type":"input","data":{"label":"Input"},"position":{"x":250,"y":25}}]`),
			Edges:       datatypes.JSON(`[]`),
		},
	}
}

// SeedTemplates inserts the starter templates when the table is empty
func (d *Database) SeedTemplates() error {
	var count int64
	if err := d.DB.Model(&models.Template{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count templates: %w", err)
	}
	if count > 0 {
		return nil
	}

	templates := starterTemplates()
	if err := d.DB.Create(&templates).Error; err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}

	logging.L().Info("starter templates seeded", zap.Int("count", len(templates)))
	return nil
}
