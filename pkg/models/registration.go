package models

import "time"

// RequestStatus is the terminal-state tracking on the registration request
// itself, owned by the registration subsystem. The engine reads requests to
// resolve approvers; only the orchestrating caller moves them to a terminal
// state.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusActivated RequestStatus = "activated" // account provisioned
)

// RegistrationRequest is the applicant data an approval chain decides on.
type RegistrationRequest struct {
	ID           string        `json:"id"`
	Type         RequestType   `json:"type"          validate:"required"`
	Name         string        `json:"name"          validate:"required"`
	Email        string        `json:"email"         validate:"required,email"`
	DepartmentID string        `json:"department_id" validate:"required"`
	CollegeID    string        `json:"college_id"    validate:"required"`
	ClassID      *string       `json:"class_id,omitempty"`
	Status       RequestStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Context extracts the organizational coordinates used for approver resolution.
func (r *RegistrationRequest) Context() ApprovalContext {
	return ApprovalContext{
		DepartmentID: r.DepartmentID,
		CollegeID:    r.CollegeID,
		ClassID:      r.ClassID,
	}
}
