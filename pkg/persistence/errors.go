// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates an approval workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("approval workflow not found")

	// ErrWorkflowNotPending indicates a transition was attempted on a row that
	// already left pending. Callers racing on the same workflow see this as
	// the stale-state outcome.
	ErrWorkflowNotPending = errors.New("approval workflow is not pending")

	// ErrWorkflowConflict indicates an attempt to create a second pending row
	// for the same request. Callers must treat it as a concurrency bug
	// upstream, not a normal outcome.
	ErrWorkflowConflict = errors.New("request already has a pending approval workflow")

	// ErrRequestNotFound indicates a registration request was not found.
	ErrRequestNotFound = errors.New("registration request not found")

	// ErrIdentityNotFound indicates an identity was not found by the given identifier.
	ErrIdentityNotFound = errors.New("identity not found")
)

// WorkflowError wraps approval-workflow errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Transition")
	WorkflowID string // Workflow ID if applicable
	RequestID  string // Registration request ID if applicable
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	target := e.WorkflowID
	if e.RequestID != "" {
		target = fmt.Sprintf("request %s", e.RequestID)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, target, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// NewRequestError creates a new workflow error for request-scoped operations.
func NewRequestError(op, requestID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:        op,
		RequestID: requestID,
		Err:       err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowNotPending checks if an error indicates a stale transition attempt.
func IsWorkflowNotPending(err error) bool {
	return errors.Is(err, ErrWorkflowNotPending)
}

// IsWorkflowConflict checks if an error indicates a pending-row uniqueness violation.
func IsWorkflowConflict(err error) bool {
	return errors.Is(err, ErrWorkflowConflict)
}

// IsRequestNotFound checks if an error indicates a registration request was not found.
func IsRequestNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound)
}

// IsIdentityNotFound checks if an error indicates an identity was not found.
func IsIdentityNotFound(err error) bool {
	return errors.Is(err, ErrIdentityNotFound)
}
