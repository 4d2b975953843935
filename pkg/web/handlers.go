// Package web provides HTTP handlers and REST API endpoints for approval
// workflow management.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/campushq/approvia/pkg/eventbus"
	"github.com/campushq/approvia/pkg/events"
	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
	"github.com/campushq/approvia/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type APIHandlers struct {
	approvalService *services.Approval
	persistence     persistence.Persistence
	eventBus        eventbus.EventBus
	validator       *validator.Validate
	logger          *slog.Logger
}

func NewAPIHandlers(
	approvalService *services.Approval,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		approvalService: approvalService,
		persistence:     p,
		eventBus:        eventBus,
		validator:       validator,
		logger:          logger,
	}
}

// CreateRegistration accepts a registration request and opens its approval
// chain at the first role.
func (h *APIHandlers) CreateRegistration(c fiber.Ctx) error {
	var req CreateRegistrationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	id, err := uuid.NewV7()
	if err != nil {
		return internalError(c, err)
	}

	now := time.Now().UTC()
	request := &models.RegistrationRequest{
		ID:           id.String(),
		Type:         models.RequestType(req.Type),
		Name:         req.Name,
		Email:        req.Email,
		DepartmentID: req.DepartmentID,
		CollegeID:    req.CollegeID,
		ClassID:      req.ClassID,
		Status:       models.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.persistence.RegistrationRepository().Create(c.Context(), request); err != nil {
		return internalError(c, err)
	}

	workflow, err := h.approvalService.CreateInitialWorkflow(c.Context(), services.CreateWorkflowRequest{
		RequestType: request.Type,
		RequestID:   request.ID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(RegistrationResponse{
		Request:  request,
		Workflow: workflow,
	})
}

// GetPendingApprovals lists the approvals inbox for a role. With identity_id
// the result is narrowed to steps bound to that identity or open to claim.
func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	role := models.Role(c.Query("role"))
	if role == "" {
		return badRequest(c, "role query parameter is required")
	}

	pending, err := h.approvalService.PendingFor(c.Context(), role, c.Query("identity_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"approvals": pending,
		"count":     len(pending),
	})
}

func (h *APIHandlers) ApproveStep(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req ApproveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	actor, err := h.loadActor(c, req.ApproverID)
	if err != nil {
		if persistence.IsIdentityNotFound(err) {
			return forbidden(c, "acting identity is not registered in the directory")
		}

		return internalError(c, err)
	}

	decision, err := h.approvalService.Approve(c.Context(), workflowID, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	if decision.Finalized {
		if err := h.finalizeRequest(c, decision); err != nil {
			return internalError(c, err)
		}
	} else {
		h.publishStepAdvanced(c, decision)
	}

	return c.JSON(ApproveResponse{
		Workflow:  decision.Workflow,
		Finalized: decision.Finalized,
		NextStep:  decision.NextStep,
	})
}

func (h *APIHandlers) RejectStep(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RejectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	actor, err := h.loadActor(c, req.ApproverID)
	if err != nil {
		if persistence.IsIdentityNotFound(err) {
			return forbidden(c, "acting identity is not registered in the directory")
		}

		return internalError(c, err)
	}

	workflow, err := h.approvalService.Reject(c.Context(), workflowID, actor, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	// Rejection at any step is terminal for the whole request.
	if err := h.persistence.RegistrationRepository().UpdateStatus(c.Context(), workflow.RequestID, models.RequestStatusRejected); err != nil {
		return internalError(c, err)
	}

	event := events.ApprovalRejected{
		BaseEvent:  events.NewBaseEvent(events.ApprovalRejectedEvent, workflow.RequestID, workflow.RequestType),
		WorkflowID: workflow.ID,
		RejectedBy: actor.ID,
		Reason:     req.Reason,
	}
	if err := h.eventBus.Publish(c.Context(), workflow.RequestID, event); err != nil {
		h.logger.WarnContext(c.Context(), "Failed to publish rejection event",
			"workflow_id", workflow.ID, "error", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetApprovalHistory(c fiber.Ctx) error {
	requestID := c.Params("requestId")
	if requestID == "" {
		return badRequest(c, "Request ID is required")
	}

	history, err := h.approvalService.HistoryFor(c.Context(), requestID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if len(history) == 0 {
		return notFound(c, "no approval history for request")
	}

	return c.JSON(fiber.Map{
		"request_id": requestID,
		"history":    history,
	})
}

func (h *APIHandlers) GetStatistics(c fiber.Ctx) error {
	filter := persistence.StatisticsFilter{CollegeID: c.Query("college_id")}

	report, err := h.approvalService.Statistics(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.approvalService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Approvia API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Approvia API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) loadActor(c fiber.Ctx, approverID string) (*models.Identity, error) {
	return h.persistence.IdentityRepository().GetByID(c.Context(), approverID)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// finalizeRequest activates the registration request after the last role in
// the chain approved, then publishes the finalization event.
func (h *APIHandlers) finalizeRequest(c fiber.Ctx, decision *services.ApprovalDecision) error {
	workflow := decision.Workflow

	request, err := h.persistence.RegistrationRepository().Activate(c.Context(), workflow.RequestID)
	if err != nil {
		return err
	}

	event := events.ApprovalFinalized{
		BaseEvent:  events.NewBaseEvent(events.ApprovalFinalizedEvent, request.ID, workflow.RequestType),
		WorkflowID: workflow.ID,
		ApprovedBy: derefOrEmpty(workflow.ApprovedBy),
	}
	if err := h.eventBus.Publish(c.Context(), request.ID, event); err != nil {
		h.logger.WarnContext(c.Context(), "Failed to publish finalization event",
			"workflow_id", workflow.ID, "error", err)
	}

	return nil
}

func (h *APIHandlers) publishStepAdvanced(c fiber.Ctx, decision *services.ApprovalDecision) {
	workflow := decision.Workflow
	next := decision.NextStep

	event := events.ApprovalStepAdvanced{
		BaseEvent:          events.NewBaseEvent(events.ApprovalStepAdvancedEvent, workflow.RequestID, workflow.RequestType),
		ApprovedWorkflowID: workflow.ID,
		ApprovedBy:         derefOrEmpty(workflow.ApprovedBy),
		NextWorkflowID:     next.ID,
		NextRole:           next.CurrentApproverRole,
		NextApproverID:     next.CurrentApproverID,
	}
	if err := h.eventBus.Publish(c.Context(), workflow.RequestID, event); err != nil {
		h.logger.WarnContext(c.Context(), "Failed to publish step advanced event",
			"workflow_id", workflow.ID, "error", err)
	}
}
