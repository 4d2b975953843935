// Package events defines event types and structures for approval lifecycle notifications.
package events

import (
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Kafka topic for approval events.
const Topic = "approvia.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ApprovalStepAdvancedEvent EventType = "approval.step.advanced"
	ApprovalFinalizedEvent    EventType = "approval.finalized"
	ApprovalRejectedEvent     EventType = "approval.rejected"
	ApprovalReminderEvent     EventType = "approval.reminder"
)

type BaseEvent struct {
	ID          string             `json:"id"`
	Type        EventType          `json:"type"`
	Timestamp   time.Time          `json:"timestamp"`
	RequestID   string             `json:"request_id"`
	RequestType models.RequestType `json:"request_type"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// ApprovalStepAdvanced is published when a step is approved and the chain
// continues with a new pending step.
type ApprovalStepAdvanced struct {
	BaseEvent

	ApprovedWorkflowID string      `json:"approved_workflow_id"`
	ApprovedBy         string      `json:"approved_by"`
	NextWorkflowID     string      `json:"next_workflow_id"`
	NextRole           models.Role `json:"next_role"`
	NextApproverID     *string     `json:"next_approver_id,omitempty"`
}

func (e ApprovalStepAdvanced) GetType() EventType {
	return ApprovalStepAdvancedEvent
}

// ApprovalFinalized is published when the last role in the chain approves
// and the registration request has been activated.
type ApprovalFinalized struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	ApprovedBy string `json:"approved_by"`
}

func (e ApprovalFinalized) GetType() EventType {
	return ApprovalFinalizedEvent
}

// ApprovalRejected is published when any step rejects the request.
type ApprovalRejected struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

func (e ApprovalRejected) GetType() EventType {
	return ApprovalRejectedEvent
}

// ApprovalReminder is published by the reminder daemon for a pending step
// that has gone unacted past the configured age.
type ApprovalReminder struct {
	BaseEvent

	WorkflowID string      `json:"workflow_id"`
	Role       models.Role `json:"role"`
	ApproverID *string     `json:"approver_id,omitempty"`
	PendingFor string      `json:"pending_for"` // human-readable duration
}

func (e ApprovalReminder) GetType() EventType {
	return ApprovalReminderEvent
}

// NewBaseEvent builds the shared envelope for an approval event.
func NewBaseEvent(eventType EventType, requestID string, requestType models.RequestType) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		RequestID:   requestID,
		RequestType: requestType,
	}
}
