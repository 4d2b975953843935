// Package services implements the approval workflow state machine and its
// read projections over the persistence layer.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/campushq/approvia/pkg/chain"
	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/otelhelper"
	"github.com/campushq/approvia/pkg/persistence"
	"github.com/campushq/approvia/pkg/resolver"
)

// Approval is the workflow state machine. Approve and Reject never mutate
// anything when a precondition fails; the single mutation per call happens
// inside one atomic store transition.
type Approval struct {
	persistence persistence.Persistence
	chains      *chain.Definition
	resolver    *resolver.Resolver
	validate    *validator.Validate
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewApproval creates a new approval service.
func NewApproval(p persistence.Persistence, chains *chain.Definition, logger *slog.Logger) *Approval {
	return &Approval{
		persistence: p,
		chains:      chains,
		resolver:    resolver.NewResolver(p.IdentityRepository(), logger),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		tracer:      noop.NewTracerProvider().Tracer("approval"),
		logger:      logger,
	}
}

// WithTracer replaces the no-op tracer, typically with the one from
// otelhelper.NewTracer.
func (a *Approval) WithTracer(tracer trace.Tracer) *Approval {
	a.tracer = tracer

	return a
}

// HealthCheck checks the health of the persistence layer.
func (a *Approval) HealthCheck(ctx context.Context) (string, bool) {
	if a.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := a.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest contains options for creating the first step of an
// approval chain.
type CreateWorkflowRequest struct {
	RequestType models.RequestType `validate:"required"`
	RequestID   string             `validate:"required"`

	// FirstRole optionally overrides the chain head; it must still belong to
	// the chain for the request type.
	FirstRole models.Role
}

// CreateInitialWorkflow creates the first pending step for a registration
// request, resolving a concrete approver when one exists. A request that
// already has a pending step is rejected with a conflict.
func (a *Approval) CreateInitialWorkflow(ctx context.Context, req CreateWorkflowRequest) (*models.ApprovalWorkflow, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "approval.create_initial",
		attribute.String("request.id", req.RequestID),
		attribute.String("request.type", string(req.RequestType)),
	)
	defer span.End()

	if err := a.validate.Struct(req); err != nil {
		return nil, &ServiceError{Op: "CreateInitialWorkflow", Message: err.Error(), Err: ErrInvalidRequest}
	}

	role := req.FirstRole
	if role == "" {
		head, ok := a.chains.First(req.RequestType)
		if !ok {
			return nil, &ServiceError{Op: "CreateInitialWorkflow", Err: ErrUnknownRequestType}
		}

		role = head
	} else if !a.chains.Contains(req.RequestType, role) {
		return nil, &ServiceError{Op: "CreateInitialWorkflow", Err: ErrRoleNotInChain}
	}

	request, err := a.persistence.RegistrationRepository().GetByID(ctx, req.RequestID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	workflow, err := a.newStep(ctx, req.RequestType, request, role)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := a.persistence.ApprovalRepository().Create(ctx, workflow); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	a.logger.InfoContext(ctx, "Approval workflow created",
		"workflow_id", workflow.ID,
		"request_id", workflow.RequestID,
		"role", workflow.CurrentApproverRole,
	)

	return workflow, nil
}

// ApprovalDecision is the outcome of an Approve call. Finalized means the
// chain is exhausted: no next step exists and the caller must finalize the
// underlying request exactly once.
type ApprovalDecision struct {
	Workflow  *models.ApprovalWorkflow `json:"workflow"`
	Finalized bool                     `json:"finalized"`
	NextStep  *models.ApprovalWorkflow `json:"next_step,omitempty"`
}

// Approve marks the identified pending step approved by the acting identity
// and advances the chain. When a next role exists, a new pending step for it
// is created in the same atomic transition, bound to a resolved approver if
// one is found. Role or identity mismatch fails before any mutation.
func (a *Approval) Approve(ctx context.Context, workflowID string, actor *models.Identity) (*ApprovalDecision, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "approval.approve",
		attribute.String("workflow.id", workflowID),
	)
	defer span.End()

	workflow, err := a.loadPending(ctx, workflowID, actor)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	var next *models.ApprovalWorkflow

	nextRole, ok := a.chains.Next(workflow.RequestType, workflow.CurrentApproverRole)
	if ok {
		request, err := a.persistence.RegistrationRepository().GetByID(ctx, workflow.RequestID)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		next, err = a.newStep(ctx, workflow.RequestType, request, nextRole)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}
	}

	decision := persistence.Decision{
		Status:  models.ApprovalStatusApproved,
		ActedBy: actor.ID,
		ActedAt: time.Now().UTC(),
	}

	if err := a.transition(ctx, workflow, decision, next); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	a.logger.InfoContext(ctx, "Approval step approved",
		"workflow_id", workflow.ID,
		"request_id", workflow.RequestID,
		"approved_by", actor.ID,
		"finalized", next == nil,
	)

	return &ApprovalDecision{Workflow: workflow, Finalized: next == nil, NextStep: next}, nil
}

// Reject marks the identified pending step rejected with a non-empty reason
// and returns the decided row. No further steps are ever created for the
// request; the orchestrating caller owns moving the registration request to
// its terminal state.
func (a *Approval) Reject(ctx context.Context, workflowID string, actor *models.Identity, reason string) (*models.ApprovalWorkflow, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "approval.reject",
		attribute.String("workflow.id", workflowID),
	)
	defer span.End()

	if reason == "" {
		return nil, &ServiceError{Op: "Reject", Err: ErrEmptyRejectionReason}
	}

	workflow, err := a.loadPending(ctx, workflowID, actor)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	decision := persistence.Decision{
		Status:  models.ApprovalStatusRejected,
		ActedBy: actor.ID,
		ActedAt: time.Now().UTC(),
		Reason:  &reason,
	}

	if err := a.transition(ctx, workflow, decision, nil); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	a.logger.InfoContext(ctx, "Approval step rejected",
		"workflow_id", workflow.ID,
		"request_id", workflow.RequestID,
		"rejected_by", actor.ID,
	)

	return workflow, nil
}

// PendingFor lists the approvals inbox for a role: pending steps either
// unbound (open claim) or bound to the given identity when one is provided.
func (a *Approval) PendingFor(ctx context.Context, role models.Role, identityID string) ([]*persistence.PendingApproval, error) {
	return a.persistence.ApprovalRepository().PendingForRole(ctx, role, identityID)
}

// HistoryFor returns the full chain trace for a request, oldest first.
func (a *Approval) HistoryFor(ctx context.Context, requestID string) ([]*models.ApprovalWorkflow, error) {
	return a.persistence.ApprovalRepository().HistoryForRequest(ctx, requestID)
}

// Statistics returns per-type aggregates, optionally scoped to one college.
func (a *Approval) Statistics(ctx context.Context, filter persistence.StatisticsFilter) (*models.StatisticsReport, error) {
	return a.persistence.ApprovalRepository().Statistics(ctx, filter)
}

// loadPending fetches the workflow and checks every precondition that must
// hold before any mutation: the row is pending, the actor holds the step's
// role, and a bound step is acted on by its bound identity.
func (a *Approval) loadPending(ctx context.Context, workflowID string, actor *models.Identity) (*models.ApprovalWorkflow, error) {
	if actor == nil || actor.ID == "" {
		return nil, &ServiceError{Op: "loadPending", Err: ErrEmptyActingIdentity}
	}

	workflow, err := a.persistence.ApprovalRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.ApprovalStatusPending {
		return nil, &ServiceError{
			Op:      "loadPending",
			Message: fmt.Sprintf("workflow %s is %s", workflowID, workflow.Status),
			Err:     ErrInvalidTransition,
		}
	}

	if actor.Role != workflow.CurrentApproverRole {
		return nil, &ServiceError{
			Op:      "loadPending",
			Message: fmt.Sprintf("step expects role %s, actor holds %s", workflow.CurrentApproverRole, actor.Role),
			Err:     ErrAuthorizationMismatch,
		}
	}

	if !workflow.Open() && !workflow.BoundTo(actor.ID) {
		return nil, &ServiceError{
			Op:      "loadPending",
			Message: "step is bound to another identity",
			Err:     ErrAuthorizationMismatch,
		}
	}

	return workflow, nil
}

// transition runs the atomic store transition and maps the stale-state
// outcome of a lost race to ErrInvalidTransition.
func (a *Approval) transition(ctx context.Context, workflow *models.ApprovalWorkflow, decision persistence.Decision, next *models.ApprovalWorkflow) error {
	err := a.persistence.ApprovalRepository().Transition(ctx, workflow.ID, decision, next)
	if err != nil {
		if persistence.IsWorkflowNotPending(err) {
			return &ServiceError{
				Op:      "transition",
				Message: fmt.Sprintf("workflow %s was decided concurrently", workflow.ID),
				Err:     ErrInvalidTransition,
			}
		}

		return err
	}

	workflow.Status = decision.Status
	workflow.ApprovedBy = &decision.ActedBy
	actedAt := decision.ActedAt
	workflow.ApprovedAt = &actedAt
	workflow.RejectionReason = decision.Reason

	return nil
}

// newStep builds a pending row for the role, bound to a resolved approver
// when the directory yields one.
func (a *Approval) newStep(ctx context.Context, requestType models.RequestType, request *models.RegistrationRequest, role models.Role) (*models.ApprovalWorkflow, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	workflow := &models.ApprovalWorkflow{
		ID:                  id.String(),
		RequestType:         requestType,
		RequestID:           request.ID,
		CurrentApproverRole: role,
		Status:              models.ApprovalStatusPending,
		CreatedAt:           time.Now().UTC(),
		UpdatedAt:           time.Now().UTC(),
	}

	identity, err := a.resolver.Resolve(ctx, role, request.Context())
	if err != nil {
		return nil, err
	}

	if identity != nil {
		workflow.CurrentApproverID = &identity.ID
	}

	return workflow, nil
}
