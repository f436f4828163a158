package analytics

import (
	"context"
	"testing"

	"agent-builder/internal/apperr"
	"agent-builder/internal/testutil"
	"agent-builder/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInteractionWritesMetricSamples(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	agent := testutil.CreateAgent(t, gdb, "Tech Expert")

	svc.RecordInteraction(ctx, &models.Interaction{
		AgentID: agent.ID, Provider: "openai", Model: "gpt-4o",
		ResponseTimeMS: 420, Success: true, Tokens: 128,
	})

	points, err := svc.Metrics(ctx, 0)
	require.NoError(t, err)
	require.Len(t, points, 2)

	byType := map[string]MetricPoint{}
	for _, p := range points {
		byType[p.MetricType] = p
		assert.Equal(t, "Tech Expert", p.AgentName)
		assert.False(t, p.Timestamp.IsZero())
	}
	assert.Equal(t, 420.0, byType[models.MetricResponseTime].Value)
	assert.Equal(t, 128.0, byType[models.MetricTokens].Value)
}

func TestMetricsLimit(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	agent := testutil.CreateAgent(t, gdb, "Busy")

	for i := 0; i < 5; i++ {
		svc.RecordInteraction(ctx, &models.Interaction{AgentID: agent.ID, ResponseTimeMS: int64(i), Success: true})
	}

	points, err := svc.Metrics(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, points, 3)
	assert.Equal(t, 4.0, points[0].Value)
}

func TestPerformanceAggregates(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	busy := testutil.CreateAgent(t, gdb, "Busy")
	idle := testutil.CreateAgent(t, gdb, "Idle")

	ok := &models.Interaction{AgentID: busy.ID, Provider: "openai", Model: "gpt-4o", ResponseTimeMS: 100, Success: true, Tokens: 50}
	svc.RecordInteraction(ctx, ok)
	svc.RecordInteraction(ctx, &models.Interaction{AgentID: busy.ID, Provider: "openai", Model: "gpt-4o", ResponseTimeMS: 300, Success: false, ErrorCode: "upstream_status_500"})
	require.NotZero(t, ok.ID)

	_, err := svc.SubmitFeedback(ctx, ok.ID, 5, "great")
	require.NoError(t, err)
	_, err = svc.SubmitFeedback(ctx, ok.ID, 4, "")
	require.NoError(t, err)

	perf, err := svc.Performance(ctx)
	require.NoError(t, err)
	require.Len(t, perf, 2)

	assert.Equal(t, busy.ID, perf[0].AgentID)
	assert.Equal(t, int64(2), perf[0].TotalInteractions)
	assert.InDelta(t, 200.0, perf[0].AvgResponseTime, 0.001)
	assert.InDelta(t, 0.5, perf[0].SuccessRate, 0.001)
	assert.InDelta(t, 4.5, perf[0].AvgUserRating, 0.001)
	assert.Equal(t, int64(50), perf[0].TotalTokens)

	assert.Equal(t, idle.ID, perf[1].AgentID)
	assert.Zero(t, perf[1].TotalInteractions)
	assert.Zero(t, perf[1].SuccessRate)
	assert.Zero(t, perf[1].AvgUserRating)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	agent := testutil.CreateAgent(t, gdb, "Rated")

	interaction := &models.Interaction{AgentID: agent.ID, Success: true}
	svc.RecordInteraction(ctx, interaction)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.SubmitFeedback(ctx, interaction.ID, rating, "")
		assert.ErrorIs(t, err, apperr.ErrValidation, "rating %d", rating)
	}

	_, err := svc.SubmitFeedback(ctx, interaction.ID+100, 3, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	fb, err := svc.SubmitFeedback(ctx, interaction.ID, 3, "  fine  ")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, fb.AgentID)
	assert.Equal(t, "fine", fb.Comment)
}
