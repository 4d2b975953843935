// Package models defines the core domain models for registration approval workflows.
package models

import "time"

// RequestType categorizes a registration request and selects which approval
// chain applies to it.
type RequestType string

const (
	RequestTypeStudent   RequestType = "student"
	RequestTypeStaff     RequestType = "staff"
	RequestTypeHOD       RequestType = "hod"
	RequestTypePrincipal RequestType = "principal"
)

// Role identifies who is expected to act on an approval step.
type Role string

const (
	RoleStaff     Role = "staff"
	RoleHOD       Role = "hod"
	RolePrincipal Role = "principal"
	RoleAdmin     Role = "admin"
)

// ApprovalStatus represents the lifecycle state of a single approval step.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"  // Awaiting the current approver
	ApprovalStatusApproved ApprovalStatus = "approved" // Decided, chain advanced or finalized
	ApprovalStatusRejected ApprovalStatus = "rejected" // Decided, chain terminated
	// ApprovalStatusEscalated is reserved for manual reassignment. No code
	// path produces it; rows carrying it are treated as non-pending.
	ApprovalStatusEscalated ApprovalStatus = "escalated"
)

// Terminal reports whether the status permits no further transitions on this row.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// ApprovalWorkflow is one step of an approval chain: one role's pending or
// decided action on one registration request. Rows that leave pending are
// immutable; advancing the chain creates a new row.
type ApprovalWorkflow struct {
	ID                  string         `json:"id"`
	RequestType         RequestType    `json:"request_type"          validate:"required"`
	RequestID           string         `json:"request_id"            validate:"required"`
	CurrentApproverRole Role           `json:"current_approver_role" validate:"required"`
	CurrentApproverID   *string        `json:"current_approver_id,omitempty"` // nil = any holder of the role may act
	Status              ApprovalStatus `json:"status"`
	ApprovedBy          *string        `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time     `json:"approved_at,omitempty"`
	RejectionReason     *string        `json:"rejection_reason,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// BoundTo reports whether the step is bound to a concrete approver identity.
func (w *ApprovalWorkflow) BoundTo(identityID string) bool {
	return w.CurrentApproverID != nil && *w.CurrentApproverID == identityID
}

// Open reports whether the step may be claimed by any holder of its role.
func (w *ApprovalWorkflow) Open() bool {
	return w.CurrentApproverID == nil
}

// ApprovalContext carries the organizational coordinates of the originating
// request, used to resolve a concrete approver for a role.
type ApprovalContext struct {
	DepartmentID string  `json:"department_id"`
	CollegeID    string  `json:"college_id"`
	ClassID      *string `json:"class_id,omitempty"` // set for student requests only
}
