// Package main provides the reminder daemon: it periodically sweeps pending
// approval steps older than a cutoff and publishes reminder events for them.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/campushq/approvia/pkg/eventbus"
	"github.com/campushq/approvia/pkg/events"
	"github.com/campushq/approvia/pkg/persistence"
	"github.com/robfig/cron/v3"
	redis "github.com/redis/go-redis/v9"
)

// Deduper suppresses repeat reminders for the same workflow within a window.
type Deduper interface {
	// Once reports whether the key was seen for the first time in the window.
	Once(ctx context.Context, key string, window time.Duration) (bool, error)
	Close() error
}

type redisDeduper struct {
	client redis.UniversalClient
}

// NewRedisDeduper connects a Deduper backed by redis SETNX with expiry, so
// multiple reminder instances never double-send.
func NewRedisDeduper(redisURL string) (Deduper, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &redisDeduper{client: redis.NewClient(opts)}, nil
}

func (d *redisDeduper) Once(ctx context.Context, key string, window time.Duration) (bool, error) {
	return d.client.SetNX(ctx, key, "1", window).Result()
}

func (d *redisDeduper) Close() error {
	return d.client.Close()
}

type Reminder struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	deduper     Deduper
	logger      *slog.Logger
	maxAge      time.Duration
	cron        *cron.Cron
}

func NewReminder(
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	deduper Deduper,
	logger *slog.Logger,
	maxAge time.Duration,
) *Reminder {
	return &Reminder{
		persistence: p,
		eventBus:    eventBus,
		deduper:     deduper,
		logger:      logger,
		maxAge:      maxAge,
	}
}

// Start schedules the sweep on the given cron expression and runs until the
// context is cancelled.
func (r *Reminder) Start(ctx context.Context, schedule string) error {
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := r.cron.AddFunc(schedule, func() {
		if err := r.Sweep(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Reminder daemon started", "schedule", schedule, "max_age", r.maxAge)

	<-ctx.Done()

	stopCtx := r.cron.Stop()
	<-stopCtx.Done()

	return nil
}

// Sweep publishes one reminder per pending step older than the cutoff. The
// deduper keeps a step from being reminded twice within the max-age window.
func (r *Reminder) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.maxAge)

	pending, err := r.persistence.ApprovalRepository().PendingOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Reminder sweep", "cutoff", cutoff, "stale_count", len(pending))

	for _, entry := range pending {
		workflow := entry.Workflow

		first, err := r.deduper.Once(ctx, "approvia:reminder:"+workflow.ID, r.maxAge)
		if err != nil {
			r.logger.WarnContext(ctx, "Reminder dedupe check failed",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		if !first {
			continue
		}

		event := events.ApprovalReminder{
			BaseEvent:  events.NewBaseEvent(events.ApprovalReminderEvent, workflow.RequestID, workflow.RequestType),
			WorkflowID: workflow.ID,
			Role:       workflow.CurrentApproverRole,
			ApproverID: workflow.CurrentApproverID,
			PendingFor: time.Since(workflow.CreatedAt).Round(time.Minute).String(),
		}

		if err := r.eventBus.Publish(ctx, workflow.RequestID, event); err != nil {
			r.logger.WarnContext(ctx, "Failed to publish reminder event",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		r.logger.InfoContext(ctx, "Reminder published",
			"workflow_id", workflow.ID,
			"request_id", workflow.RequestID,
			"role", workflow.CurrentApproverRole,
		)
	}

	return nil
}
