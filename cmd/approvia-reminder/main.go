package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campushq/approvia/pkg/cmd"
	"github.com/campushq/approvia/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultMaxAge = 24 * time.Hour

func main() {
	logger := log.WithModule("reminder")

	command := &cli.Command{
		Name:                  "approvia-reminder",
		Usage:                 "Publish reminder events for stale pending approvals",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis connection URL for reminder deduplication",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the sweep schedule",
				Value:   "0 * * * *",
				Sources: cli.EnvVars("REMINDER_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "max-age",
				Usage:   "Age past which a pending step gets a reminder",
				Value:   defaultMaxAge,
				Sources: cli.EnvVars("REMINDER_MAX_AGE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Approvia reminder daemon")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			deduper, err := NewRedisDeduper(command.String("redis-url"))
			if err != nil {
				return err
			}
			defer func() {
				if err := deduper.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close deduper", "error", err)
				}
			}()

			reminder := NewReminder(
				persistence,
				eventBus,
				deduper,
				logger,
				command.Duration("max-age"),
			)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return reminder.Start(ctx, command.String("schedule"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
