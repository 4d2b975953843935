// Package web provides HTTP request and response types for the approval API.
package web

import "github.com/campushq/approvia/pkg/models"

// CreateRegistrationRequest represents the request body for submitting a new
// registration request, which opens its approval chain.
type CreateRegistrationRequest struct {
	Type         string  `json:"type"          validate:"required,oneof=student staff hod principal"`
	Name         string  `json:"name"          validate:"required,min=2"`
	Email        string  `json:"email"         validate:"required,email"`
	DepartmentID string  `json:"department_id" validate:"required"`
	CollegeID    string  `json:"college_id"    validate:"required"`
	ClassID      *string `json:"class_id,omitempty"`
}

// ApproveRequest represents the request body for approving a pending step.
type ApproveRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
}

// RejectRequest represents the request body for rejecting a pending step.
type RejectRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	Reason     string `json:"reason"      validate:"required,min=3"`
}

// RegistrationResponse pairs a created registration request with the first
// step of its approval chain.
type RegistrationResponse struct {
	Request  *models.RegistrationRequest `json:"request"`
	Workflow *models.ApprovalWorkflow    `json:"workflow"`
}

// ApproveResponse reports the outcome of an approve call.
type ApproveResponse struct {
	Workflow  *models.ApprovalWorkflow `json:"workflow"`
	Finalized bool                     `json:"finalized"`
	NextStep  *models.ApprovalWorkflow `json:"next_step,omitempty"`
}
