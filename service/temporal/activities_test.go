package temporal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solkit/service/db"
	natspkg "github.com/brojonat/solkit/service/nats"
	"github.com/brojonat/solkit/service/toolkit"
)

// Mock Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) RecordInvocation(ctx context.Context, params db.RecordInvocationParams) (*db.Invocation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Invocation), args.Error(1)
}

// Mock Invoker
type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) Invoke(ctx context.Context, name, input string) toolkit.Invocation {
	args := m.Called(ctx, name, input)
	return args.Get(0).(toolkit.Invocation)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInvokeTool(t *testing.T) {
	invoker := new(MockInvoker)
	inv := *successInvocation()
	invoker.On("Invoke", mock.Anything, "deploy_token", `{"name":"x"}`).Return(inv)

	activities := NewActivities(invoker, nil, nil, nil, testLogger())
	got, err := activities.InvokeTool(context.Background(), InvokeToolInput{Tool: "deploy_token", Input: `{"name":"x"}`})
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	invoker.AssertExpectations(t)
}

func TestInvokeTool_NoInvoker(t *testing.T) {
	activities := NewActivities(nil, nil, nil, nil, testLogger())
	_, err := activities.InvokeTool(context.Background(), InvokeToolInput{Tool: "x"})
	assert.Error(t, err)
}

func TestRecordInvocation(t *testing.T) {
	store := new(MockStore)
	inv := *successInvocation()
	store.On("RecordInvocation", mock.Anything, mock.MatchedBy(func(p db.RecordInvocationParams) bool {
		return p.ID == inv.ID && p.Tool == inv.Tool && p.TxID == "sig" && p.Duration == time.Second
	})).Return(&db.Invocation{ID: inv.ID}, nil)

	activities := NewActivities(nil, store, nil, nil, testLogger())
	require.NoError(t, activities.RecordInvocation(context.Background(), inv))
	store.AssertExpectations(t)
}

func TestRecordInvocation_Error(t *testing.T) {
	store := new(MockStore)
	store.On("RecordInvocation", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	activities := NewActivities(nil, store, nil, nil, testLogger())
	err := activities.RecordInvocation(context.Background(), *successInvocation())
	assert.ErrorContains(t, err, "db down")
}

func TestRecordInvocation_NoStore(t *testing.T) {
	activities := NewActivities(nil, nil, nil, nil, testLogger())
	assert.NoError(t, activities.RecordInvocation(context.Background(), *successInvocation()))
}

func TestPublishToolEvent(t *testing.T) {
	publisher := natspkg.NewMockPublisher()
	activities := NewActivities(nil, nil, publisher, nil, testLogger())

	require.NoError(t, activities.PublishToolEvent(context.Background(), *successInvocation()))
	events := publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "inv-1", events[0].InvocationID)
	assert.Equal(t, "sig", events[0].TxID)

	publisher.SetPublishError(errors.New("nats down"))
	assert.Error(t, activities.PublishToolEvent(context.Background(), *successInvocation()))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "running", statusString(1))
	assert.Equal(t, "completed", statusString(2))
}
