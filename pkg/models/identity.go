package models

import "time"

// Identity is an entry in the identity directory: a user holding a role
// within the organizational hierarchy. The approval engine only reads
// identities; it never creates or mutates them.
type Identity struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"  validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	Role            Role      `json:"role"  validate:"required"`
	DepartmentID    string    `json:"department_id"`
	CollegeID       string    `json:"college_id"`
	ClassInChargeID *string   `json:"class_in_charge_id,omitempty"` // staff only
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
