package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solkit/service/toolkit"
)

func TestFromInvocation(t *testing.T) {
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	inv := toolkit.Invocation{
		ID:        "inv-1",
		Tool:      "deploy_token",
		Input:     `{"name":"secret"}`,
		Output:    `{"status":"success","message":"Token deployed successfully","txId":"sig"}`,
		Status:    toolkit.StatusSuccess,
		StartedAt: started,
		Duration:  2500 * time.Millisecond,
	}

	event := FromInvocation(inv)
	assert.Equal(t, "inv-1", event.InvocationID)
	assert.Equal(t, "tools.deploy_token", event.Subject())
	assert.Equal(t, "sig", event.TxID)
	assert.Equal(t, "Token deployed successfully", event.Message)
	assert.Equal(t, int64(2500), event.DurationMS)
	assert.Equal(t, started, event.StartedAt)
	assert.False(t, event.PublishedAt.IsZero())
}

func TestFromInvocation_NonJSONOutput(t *testing.T) {
	event := FromInvocation(toolkit.Invocation{Tool: "raw", Output: "oops", Status: toolkit.StatusError, Code: toolkit.CodeUnknown})
	assert.Empty(t, event.Message)
	assert.Equal(t, toolkit.CodeUnknown, event.Code)
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	ctx := context.Background()

	require.NoError(t, m.PublishToolEvent(ctx, &ToolEvent{Tool: "a"}))
	require.NoError(t, m.PublishToolEvent(ctx, &ToolEvent{Tool: "b"}))
	assert.Len(t, m.GetPublishedEvents(), 2)
	assert.Len(t, m.GetPublishedEventsForTool("a"), 1)

	m.SetPublishError(errors.New("down"))
	assert.Error(t, m.PublishToolEvent(ctx, &ToolEvent{Tool: "c"}))
	assert.Len(t, m.GetPublishedEvents(), 2)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}
