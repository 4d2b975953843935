package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/approvia/pkg/channels/gochannel"
	"github.com/campushq/approvia/pkg/eventbus"
	"github.com/campushq/approvia/pkg/events"
	"github.com/campushq/approvia/pkg/models"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.ApprovalFinalizedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.ApprovalFinalized{
		BaseEvent:  events.NewBaseEvent(events.ApprovalFinalizedEvent, "req-1", models.RequestTypeStudent),
		WorkflowID: "wf-1",
		ApprovedBy: "principal-1",
	}
	require.NoError(t, bus.Publish(ctx, "req-1", event))

	select {
	case got := <-received:
		finalized, ok := got.(*events.ApprovalFinalized)
		require.True(t, ok)
		assert.Equal(t, "wf-1", finalized.WorkflowID)
		assert.Equal(t, "principal-1", finalized.ApprovedBy)
		assert.Equal(t, "req-1", finalized.RequestID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered; publishing must not wedge the subscription.
	event := events.ApprovalReminder{
		BaseEvent:  events.NewBaseEvent(events.ApprovalReminderEvent, "req-1", models.RequestTypeStudent),
		WorkflowID: "wf-1",
		Role:       models.RoleHOD,
	}
	assert.NoError(t, bus.Publish(ctx, "req-1", event))
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
