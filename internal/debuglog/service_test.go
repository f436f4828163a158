package debuglog

import (
	"context"
	"fmt"
	"testing"

	"agent-builder/internal/apperr"
	"agent-builder/internal/testutil"
	"agent-builder/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentIsNewestFirstAndCapped(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	chat := testutil.CreateChat(t, gdb, "Capped")

	for i := 0; i < RecentLimit+10; i++ {
		svc.Record(ctx, chat.ID, models.DebugInfo, fmt.Sprintf("event %d", i), nil)
	}
	svc.Record(ctx, chat.ID+1, models.DebugInfo, "other chat", nil)

	events, err := svc.Recent(ctx, chat.ID)
	require.NoError(t, err)

	require.Len(t, events, RecentLimit)
	assert.Equal(t, fmt.Sprintf("event %d", RecentLimit+9), events[0].Message)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i-1].ID, events[i].ID)
		assert.Equal(t, chat.ID, events[i].ChatID)
	}
}

func TestRecordStoresDetails(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	ctx := context.Background()

	svc.Record(ctx, 4, models.DebugError, "Agent is not a participant", map[string]interface{}{"agent_id": 99})

	events, err := svc.Recent(ctx, 4)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.DebugError, events[0].Type)
	assert.EqualValues(t, 99, events[0].Details["agent_id"])
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	require.NoError(t, gdb.Migrator().DropTable(&models.DebugEvent{}))

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), 1, models.DebugInfo, "lost", nil)
	})
}

func TestAppendValidates(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	chat := testutil.CreateChat(t, gdb, "Validated")

	tests := []struct {
		name   string
		chatID uint
		in     AppendInput
		kind   error
	}{
		{name: "unknown type", chatID: chat.ID, in: AppendInput{Type: "warning", Message: "x"}, kind: apperr.ErrValidation},
		{name: "empty message", chatID: chat.ID, in: AppendInput{Type: models.DebugInfo, Message: "  "}, kind: apperr.ErrValidation},
		{name: "unknown chat", chatID: chat.ID + 100, in: AppendInput{Type: models.DebugInfo, Message: "x"}, kind: apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Append(ctx, tt.chatID, tt.in)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	event, err := svc.Append(ctx, chat.ID, AppendInput{
		Type:    models.DebugSuccess,
		Message: "Client reply rendered",
		Details: map[string]interface{}{"latency_ms": 120},
	})
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.Equal(t, "Client reply rendered", event.Message)
}

type capturePublisher struct {
	events []*models.DebugEvent
}

func (p *capturePublisher) Publish(event *models.DebugEvent) {
	p.events = append(p.events, event)
}

func TestStoredEventsArePublished(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	pub := &capturePublisher{}
	svc.SetPublisher(pub)
	ctx := context.Background()
	chat := testutil.CreateChat(t, gdb, "Live")

	svc.Record(ctx, chat.ID, models.DebugInfo, "recorded", nil)
	_, err := svc.Append(ctx, chat.ID, AppendInput{Type: models.DebugSuccess, Message: "appended"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, chat.ID, AppendInput{Type: "bogus", Message: "rejected"})
	require.Error(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "recorded", pub.events[0].Message)
	assert.Equal(t, "appended", pub.events[1].Message)
	assert.NotZero(t, pub.events[1].ID)

	require.NoError(t, gdb.Migrator().DropTable(&models.DebugEvent{}))
	svc.Record(ctx, chat.ID, models.DebugInfo, "lost", nil)
	assert.Len(t, pub.events, 2)
}

func TestRecordSurvivesCancelledContext(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb)
	chat := testutil.CreateChat(t, gdb, "Hung up")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Record(ctx, chat.ID, models.DebugSuccess, "Message sent by Speaker", nil)

	events, err := svc.Recent(context.Background(), chat.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Message sent by Speaker", events[0].Message)
}
