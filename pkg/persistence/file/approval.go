package file

import (
	"context"
	"sort"
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
)

const approvalKind = "approvals"

// ApprovalRepository handles approval-workflow file operations.
type ApprovalRepository struct {
	store    *store
	requests *RegistrationRepository
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(s *store, requests *RegistrationRepository) *ApprovalRepository {
	return &ApprovalRepository{store: s, requests: requests}
}

// Create persists a new workflow row, refusing a second pending row for the
// same request.
func (r *ApprovalRepository) Create(_ context.Context, workflow *models.ApprovalWorkflow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if workflow.Status == models.ApprovalStatusPending {
		pending, err := r.pendingForRequest(workflow.RequestID)
		if err != nil {
			return persistence.NewRequestError("Create", workflow.RequestID, err)
		}

		if pending != nil {
			return persistence.NewRequestError("Create", workflow.RequestID, persistence.ErrWorkflowConflict)
		}
	}

	if err := r.store.write(approvalKind, workflow.ID, workflow); err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return nil
}

// GetByID retrieves a workflow row by its identifier.
func (r *ApprovalRepository) GetByID(_ context.Context, id string) (*models.ApprovalWorkflow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.getLocked(id)
}

func (r *ApprovalRepository) getLocked(id string) (*models.ApprovalWorkflow, error) {
	var workflow models.ApprovalWorkflow

	found, err := r.store.read(approvalKind, id, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// Transition atomically decides the identified pending row and, when the
// chain continues, persists the next pending row. The store mutex is the
// serialization point: of two racing callers exactly one finds the row
// pending.
func (r *ApprovalRepository) Transition(_ context.Context, workflowID string, decision persistence.Decision, next *models.ApprovalWorkflow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	workflow, err := r.getLocked(workflowID)
	if err != nil {
		return err
	}

	if workflow.Status != models.ApprovalStatusPending {
		return persistence.NewWorkflowError("Transition", workflowID, persistence.ErrWorkflowNotPending)
	}

	now := time.Now().UTC()

	workflow.Status = decision.Status
	workflow.ApprovedBy = &decision.ActedBy
	actedAt := decision.ActedAt
	workflow.ApprovedAt = &actedAt
	workflow.RejectionReason = decision.Reason
	workflow.UpdatedAt = now

	if err := r.store.write(approvalKind, workflow.ID, workflow); err != nil {
		return persistence.NewWorkflowError("Transition", workflowID, err)
	}

	if next != nil {
		pending, err := r.pendingForRequest(next.RequestID)
		if err != nil {
			return persistence.NewWorkflowError("Transition", workflowID, err)
		}

		if pending != nil {
			return persistence.NewWorkflowError("Transition", workflowID, persistence.ErrWorkflowConflict)
		}

		if err := r.store.write(approvalKind, next.ID, next); err != nil {
			return persistence.NewWorkflowError("Transition", workflowID, err)
		}
	}

	return nil
}

// PendingForRole lists pending rows for a role, optionally narrowed to rows
// claimable by the given identity.
func (r *ApprovalRepository) PendingForRole(_ context.Context, role models.Role, identityID string) ([]*persistence.PendingApproval, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	workflows, err := r.allLocked()
	if err != nil {
		return nil, err
	}

	entries := make([]*persistence.PendingApproval, 0)

	for _, workflow := range workflows {
		if workflow.Status != models.ApprovalStatusPending || workflow.CurrentApproverRole != role {
			continue
		}

		if identityID != "" && !workflow.Open() && !workflow.BoundTo(identityID) {
			continue
		}

		entry, err := r.joinRequestLocked(workflow)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	sortByCreatedAt(entries)

	return entries, nil
}

// PendingOlderThan lists pending rows created before the cutoff.
func (r *ApprovalRepository) PendingOlderThan(_ context.Context, cutoff time.Time) ([]*persistence.PendingApproval, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	workflows, err := r.allLocked()
	if err != nil {
		return nil, err
	}

	entries := make([]*persistence.PendingApproval, 0)

	for _, workflow := range workflows {
		if workflow.Status != models.ApprovalStatusPending || !workflow.CreatedAt.Before(cutoff) {
			continue
		}

		entry, err := r.joinRequestLocked(workflow)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	sortByCreatedAt(entries)

	return entries, nil
}

// HistoryForRequest returns every row for the request, oldest first.
func (r *ApprovalRepository) HistoryForRequest(_ context.Context, requestID string) ([]*models.ApprovalWorkflow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	workflows, err := r.allLocked()
	if err != nil {
		return nil, err
	}

	history := make([]*models.ApprovalWorkflow, 0)

	for _, workflow := range workflows {
		if workflow.RequestID == requestID {
			history = append(history, workflow)
		}
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})

	return history, nil
}

// Statistics aggregates counts and average approval latency per request type.
func (r *ApprovalRepository) Statistics(_ context.Context, filter persistence.StatisticsFilter) (*models.StatisticsReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	workflows, err := r.allLocked()
	if err != nil {
		return nil, err
	}

	byType := make(map[models.RequestType]*models.TypeStatistics)
	latencySums := make(map[models.RequestType]float64)
	report := &models.StatisticsReport{ByType: make([]*models.TypeStatistics, 0)}

	for _, workflow := range workflows {
		if filter.CollegeID != "" {
			request, err := r.requests.getLocked(workflow.RequestID)
			if err != nil || request == nil || request.CollegeID != filter.CollegeID {
				continue
			}
		}

		stats, ok := byType[workflow.RequestType]
		if !ok {
			stats = &models.TypeStatistics{RequestType: workflow.RequestType}
			byType[workflow.RequestType] = stats
		}

		switch workflow.Status {
		case models.ApprovalStatusPending:
			stats.Pending++
			report.TotalPending++
		case models.ApprovalStatusApproved:
			stats.Approved++
			report.TotalApproved++

			if workflow.ApprovedAt != nil {
				latencySums[workflow.RequestType] += workflow.ApprovedAt.Sub(workflow.CreatedAt).Seconds()
			}
		case models.ApprovalStatusRejected:
			stats.Rejected++
			report.TotalRejected++
		case models.ApprovalStatusEscalated:
			stats.Escalated++
		}
	}

	for requestType, stats := range byType {
		if stats.Approved > 0 {
			stats.AvgApprovalSeconds = latencySums[requestType] / float64(stats.Approved)
		}

		report.ByType = append(report.ByType, stats)
	}

	sort.Slice(report.ByType, func(i, j int) bool {
		return report.ByType[i].RequestType < report.ByType[j].RequestType
	})

	return report, nil
}

func (r *ApprovalRepository) allLocked() ([]*models.ApprovalWorkflow, error) {
	ids, err := r.store.list(approvalKind)
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	workflows := make([]*models.ApprovalWorkflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *ApprovalRepository) pendingForRequest(requestID string) (*models.ApprovalWorkflow, error) {
	workflows, err := r.allLocked()
	if err != nil {
		return nil, err
	}

	for _, workflow := range workflows {
		if workflow.RequestID == requestID && workflow.Status == models.ApprovalStatusPending {
			return workflow, nil
		}
	}

	return nil, nil
}

func (r *ApprovalRepository) joinRequestLocked(workflow *models.ApprovalWorkflow) (*persistence.PendingApproval, error) {
	request, err := r.requests.getLocked(workflow.RequestID)
	if err != nil {
		return nil, err
	}

	return &persistence.PendingApproval{Workflow: workflow, Request: request}, nil
}

func sortByCreatedAt(entries []*persistence.PendingApproval) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Workflow.CreatedAt.Before(entries[j].Workflow.CreatedAt)
	})
}
