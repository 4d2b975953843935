// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/campushq/approvia/pkg/persistence"
)

var (
	// ErrWorkflowNotFound is returned when an approval workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrRequestNotFound is returned when a registration request is not found.
	ErrRequestNotFound = persistence.ErrRequestNotFound
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest        = errors.New("invalid request")
	ErrEmptyRejectionReason  = errors.New("rejection reason is required")
	ErrEmptyActingIdentity   = errors.New("acting identity is required")
	ErrUnknownRequestType    = errors.New("unknown request type")
	ErrRoleNotInChain        = errors.New("role is not part of the approval chain for this request type")

	// Authorization Errors (403 Forbidden). The acting identity or its role
	// does not match the step's assignment; nothing is mutated and the
	// correct actor may retry.
	ErrAuthorizationMismatch = errors.New("acting identity does not match the step's assignment")

	// Business Logic Conflicts (409 Conflict).
	ErrInvalidTransition = errors.New("approval workflow already decided")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyRejectionReason) ||
		errors.Is(err, ErrEmptyActingIdentity) ||
		errors.Is(err, ErrUnknownRequestType) ||
		errors.Is(err, ErrRoleNotInChain)
}

// IsAuthorizationError checks if an error is an authorization mismatch that should return HTTP 403.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrAuthorizationMismatch)
}

// IsConflictError checks if an error is a stale or conflicting transition that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		persistence.IsWorkflowConflict(err)
}

// IsNotFoundError checks if an error indicates a missing workflow or request.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) ||
		persistence.IsRequestNotFound(err)
}
