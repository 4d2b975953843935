// Package persistence provides the data storage abstraction for approval
// workflows, registration requests, and the identity directory.
package persistence

import (
	"context"
	"time"

	"github.com/campushq/approvia/pkg/models"
)

type Persistence interface {
	ApprovalRepository() ApprovalRepository
	RegistrationRepository() RegistrationRepository
	IdentityRepository() IdentityRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// Decision is the terminal outcome applied to a pending approval row. Status
// must be approved or rejected; Reason is set for rejections only.
type Decision struct {
	Status  models.ApprovalStatus
	ActedBy string
	ActedAt time.Time
	Reason  *string
}

// PendingApproval is an inbox entry: a pending workflow row joined with a
// summary of the registration request it decides on.
type PendingApproval struct {
	Workflow *models.ApprovalWorkflow    `json:"workflow"`
	Request  *models.RegistrationRequest `json:"request"`
}

// StatisticsFilter optionally scopes the statistics projection.
type StatisticsFilter struct {
	CollegeID string // empty = all colleges
}

// ApprovalRepository is the durable store for approval workflow rows.
//
// Transition is the single atomic unit behind approve and reject: it moves
// the identified row out of pending, applying the decision, and inserts the
// next pending row when the chain continues — all or nothing. Concurrent
// transitions on one row are serialized; losers observe ErrWorkflowNotPending.
// Implementations enforce structurally that a request has at most one pending
// row at a time, surfacing violations as ErrWorkflowConflict.
type ApprovalRepository interface {
	Create(ctx context.Context, workflow *models.ApprovalWorkflow) error
	GetByID(ctx context.Context, id string) (*models.ApprovalWorkflow, error)
	Transition(ctx context.Context, workflowID string, decision Decision, next *models.ApprovalWorkflow) error

	// PendingForRole lists pending rows for a role. With a non-empty
	// identityID the result is narrowed to rows bound to that identity or
	// bound to nobody (open claim).
	PendingForRole(ctx context.Context, role models.Role, identityID string) ([]*PendingApproval, error)

	// PendingOlderThan lists pending rows created before the cutoff,
	// regardless of role. Used by out-of-core reminder tooling.
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*PendingApproval, error)

	// HistoryForRequest returns every row ever created for the request,
	// oldest first: the full audit trail of its chain.
	HistoryForRequest(ctx context.Context, requestID string) ([]*models.ApprovalWorkflow, error)

	Statistics(ctx context.Context, filter StatisticsFilter) (*models.StatisticsReport, error)
}

// RegistrationRepository is the collaborator contract over the registration
// request store. The engine reads requests for approver resolution; terminal
// status updates and activation are driven by the orchestrating caller.
type RegistrationRepository interface {
	Create(ctx context.Context, request *models.RegistrationRequest) error
	GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error

	// Activate finalizes a fully approved request: marks it activated and
	// returns the updated record. Provisioning the account itself belongs to
	// the registration subsystem.
	Activate(ctx context.Context, id string) (*models.RegistrationRequest, error)
}

// Scope narrows a directory lookup to a slice of the organizational
// hierarchy. Zero-value fields do not constrain the lookup.
type Scope struct {
	DepartmentID    string
	CollegeID       string
	ClassInChargeID string
}

// IdentityRepository is the read-only collaborator contract over the
// identity directory.
type IdentityRepository interface {
	Save(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id string) (*models.Identity, error)

	// FindActiveByRoleAndScope returns an active identity holding the role
	// within the scope, or nil when none exists. Absence is not an error.
	FindActiveByRoleAndScope(ctx context.Context, role models.Role, scope Scope) (*models.Identity, error)
}
