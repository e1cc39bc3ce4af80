package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/pulseflow/pkg/channels/gochannel"
	"github.com/edupulse/pulseflow/pkg/events"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestPublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []*events.ExecutionStarted
	)

	require.NoError(t, bus.Handle(events.ExecutionStartedEvent, func(_ context.Context, event any) error {
		started, ok := event.(*events.ExecutionStarted)
		if !ok {
			t.Errorf("unexpected event payload type %T", event)

			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		received = append(received, started)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	published := events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, "wf-1"),
		ExecutionID: "exec-1",
		TriggeredBy: "event",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", published))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "exec-1", received[0].ExecutionID)
	assert.Equal(t, "wf-1", received[0].WorkflowID)
	assert.Equal(t, events.ExecutionStartedEvent, received[0].GetType())
}

func TestUnhandledEventTypeIsIgnored(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)

	require.NoError(t, bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, _ any) error {
		mu.Lock()
		defer mu.Unlock()
		count++

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	// Only the completed event has a handler; the started event is dropped.
	require.NoError(t, bus.Publish(ctx, "wf-1", events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, "wf-1"),
	}))
	require.NoError(t, bus.Publish(ctx, "wf-1", events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return count == 1
	}, time.Second, 5*time.Millisecond)
}

func TestGenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
