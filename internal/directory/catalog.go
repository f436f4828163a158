package directory

import (
	"agent-builder/pkg/models"

	"gorm.io/datatypes"
)

const defaultTemperature = 70

// defaultFlow is the input → agent → output graph every premade agent starts with
func defaultFlow() (datatypes.JSON, datatypes.JSON) {
	nodes := datatypes.JSON(`[
		{"id": "input", "type": "input", "position": {"x": 0, "y": 100}, "data": {"label": "User message"}},
		{"id": "agent", "type": "agent", "position": {"x": 250, "y": 100}, "data": {"label": "Agent"}},
		{"id": "output", "type": "output", "position": {"x": 500, "y": 100}, "data": {"label": "Reply"}}
	]`)
	edges := datatypes.JSON(`[
		{"id": "input-agent", "source": "input", "target": "agent"},
		{"id": "agent-output", "source": "agent", "target": "output"}
	]`)
	return nodes, edges
}

// premadeAgents is the catalog seeded by Initialize
func premadeAgents() []models.Agent {
	catalog := []models.Agent{
		{
			Name:              "Creative Writer",
			Description:       "An imaginative AI that helps with creative writing, storytelling, and brainstorming ideas.",
			PersonalityTraits: []string{"Creative", "Imaginative", "Supportive"},
			ModelProvider:     models.ProviderOpenAI,
			ModelName:         "gpt-4o",
		},
		{
			Name:              "Tech Expert",
			Description:       "A knowledgeable AI assistant for programming, debugging, and technical discussions.",
			PersonalityTraits: []string{"Analytical", "Technical", "Detail-oriented"},
			ModelProvider:     models.ProviderOpenAI,
			ModelName:         "gpt-4o",
		},
		{
			Name:              "Data Analyst",
			Description:       "Specializes in analyzing data, creating visualizations, and deriving insights.",
			PersonalityTraits: []string{"Analytical", "Precise", "Explanatory"},
			ModelProvider:     models.ProviderXAI,
			ModelName:         "grok-2-1212",
		},
		{
			Name:              "Image Expert",
			Description:       "An AI assistant specialized in image analysis, generation, and visual tasks.",
			PersonalityTraits: []string{"Visual", "Creative", "Descriptive"},
			ModelProvider:     models.ProviderXAI,
			ModelName:         "grok-2-vision-1212",
		},
	}

	for i := range catalog {
		catalog[i].Temperature = defaultTemperature
		catalog[i].Nodes, catalog[i].Edges = defaultFlow()
	}
	return catalog
}
