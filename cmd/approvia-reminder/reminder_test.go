package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/campushq/approvia/pkg/events"
	"github.com/campushq/approvia/pkg/mocks"
	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryDeduper is a single-process stand-in for the redis-backed deduper.
type memoryDeduper struct {
	seen map[string]bool
}

func newMemoryDeduper() *memoryDeduper {
	return &memoryDeduper{seen: make(map[string]bool)}
}

func (d *memoryDeduper) Once(_ context.Context, key string, _ time.Duration) (bool, error) {
	if d.seen[key] {
		return false, nil
	}

	d.seen[key] = true

	return true, nil
}

func (d *memoryDeduper) Close() error {
	return nil
}

func seedPending(t *testing.T, p *file.Persistence, id string, age time.Duration) {
	t.Helper()

	created := time.Now().UTC().Add(-age)
	require.NoError(t, p.ApprovalRepository().Create(t.Context(), &models.ApprovalWorkflow{
		ID:                  id,
		RequestType:         models.RequestTypeStudent,
		RequestID:           "req-" + id,
		CurrentApproverRole: models.RoleHOD,
		Status:              models.ApprovalStatusPending,
		CreatedAt:           created,
		UpdatedAt:           created,
	}))
}

func TestSweep_PublishesForStaleSteps(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	seedPending(t, p, "wf-stale", 48*time.Hour)
	seedPending(t, p, "wf-fresh", time.Hour)

	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, "req-wf-stale", mock.Anything).Return(nil)

	reminder := NewReminder(p, eventBus, newMemoryDeduper(), slog.Default(), 24*time.Hour)

	require.NoError(t, reminder.Sweep(t.Context()))

	eventBus.AssertNumberOfCalls(t, "Publish", 1)

	event, ok := eventBus.Calls[0].Arguments.Get(2).(events.ApprovalReminder)
	require.True(t, ok)
	assert.Equal(t, "wf-stale", event.WorkflowID)
	assert.Equal(t, models.RoleHOD, event.Role)
	assert.NotEmpty(t, event.PendingFor)
}

func TestSweep_DedupesRepeatRuns(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	seedPending(t, p, "wf-stale", 48*time.Hour)

	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	reminder := NewReminder(p, eventBus, newMemoryDeduper(), slog.Default(), 24*time.Hour)

	require.NoError(t, reminder.Sweep(t.Context()))
	require.NoError(t, reminder.Sweep(t.Context()))

	eventBus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestSweep_NothingStale(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	seedPending(t, p, "wf-fresh", time.Hour)

	eventBus := &mocks.MockEventBus{}

	reminder := NewReminder(p, eventBus, newMemoryDeduper(), slog.Default(), 24*time.Hour)

	require.NoError(t, reminder.Sweep(t.Context()))

	eventBus.AssertNotCalled(t, "Publish")
}
