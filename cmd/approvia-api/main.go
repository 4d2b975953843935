package main

import (
	"context"
	"os"

	"github.com/campushq/approvia/pkg/chain"
	"github.com/campushq/approvia/pkg/cmd"
	"github.com/campushq/approvia/pkg/log"
	"github.com/campushq/approvia/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9093

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "approvia-api",
		Usage:                 "Registration approval workflow API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
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
				Name:    "chains-config",
				Usage:   "Path to a JSON file overriding the default approval chains",
				Sources: cli.EnvVars("CHAINS_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing export",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing Approvia API")

			chains := chain.Default()

			if path := command.String("chains-config"); path != "" {
				loaded, err := chain.Load(path)
				if err != nil {
					return err
				}

				chains = loaded
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				chains,
				eventBus,
			)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "approvia-api")
				if err != nil {
					return err
				}

				api = api.WithTracer(tracer)
			}

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
