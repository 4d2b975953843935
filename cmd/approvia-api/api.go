// Package main provides the Approvia API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/campushq/approvia/pkg/chain"
	"github.com/campushq/approvia/pkg/eventbus"
	"github.com/campushq/approvia/pkg/persistence"
	"github.com/campushq/approvia/pkg/services"
	"github.com/campushq/approvia/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	chains      *chain.Definition
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	tracer      trace.Tracer
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	chains *chain.Definition,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		chains:      chains,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) WithTracer(tracer trace.Tracer) *API {
	a.tracer = tracer

	return a
}

func (a *API) App() *fiber.App {
	approvalService := services.NewApproval(a.persistence, a.chains, a.logger)
	if a.tracer != nil {
		approvalService = approvalService.WithTracer(a.tracer)
	}

	handlers := web.NewAPIHandlers(approvalService, a.persistence, a.eventBus, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Approvia API")
	})

	app.Post("/registrations", handlers.CreateRegistration)

	approvals := app.Group("/approvals")
	approvals.Get("/pending", handlers.GetPendingApprovals)
	approvals.Post("/:id/approve", handlers.ApproveStep)
	approvals.Post("/:id/reject", handlers.RejectStep)
	approvals.Get("/requests/:requestId/history", handlers.GetApprovalHistory)
	approvals.Get("/statistics", handlers.GetStatistics)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
