package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
)

const uniqueViolation = "23505"

const workflowColumns = `
			id
		  , request_type
		  , request_id
		  , current_approver_role
		  , current_approver_id
		  , status
		  , approved_by
		  , approved_at
		  , rejection_reason
		  , created_at
		  , updated_at
`

// ApprovalRepository handles approval-workflow database operations.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

// Create inserts a new workflow row. The partial unique index on pending
// rows turns a second pending row for the same request into a conflict.
func (r *ApprovalRepository) Create(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	query := `
		INSERT INTO approval_workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.RequestType,
		workflow.RequestID,
		workflow.CurrentApproverRole,
		workflow.CurrentApproverID,
		workflow.Status,
		workflow.ApprovedBy,
		workflow.ApprovedAt,
		workflow.RejectionReason,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewRequestError("Create", workflow.RequestID, persistence.ErrWorkflowConflict)
		}

		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return nil
}

// GetByID retrieves a workflow row by its identifier.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalWorkflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM approval_workflows
		WHERE id = $1
	`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

// Transition atomically decides the identified pending row and, when the
// chain continues, inserts the next pending row. The guarded UPDATE is the
// serialization point: of two racing callers exactly one matches the pending
// row, the other gets ErrWorkflowNotPending. The partial unique index
// backstops the single-pending invariant on the insert.
func (r *ApprovalRepository) Transition(ctx context.Context, workflowID string, decision persistence.Decision, next *models.ApprovalWorkflow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewWorkflowError("Transition", workflowID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	update := `
		UPDATE approval_workflows
		SET status = $2
		  , approved_by = $3
		  , approved_at = $4
		  , rejection_reason = $5
		  , updated_at = $6
		WHERE id = $1 AND status = 'pending'
	`

	result, err := tx.ExecContext(ctx, update,
		workflowID,
		decision.Status,
		decision.ActedBy,
		decision.ActedAt,
		decision.Reason,
		time.Now().UTC(),
	)
	if err != nil {
		return persistence.NewWorkflowError("Transition", workflowID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Transition", workflowID, err)
	}

	if affected == 0 {
		err = r.classifyMissedUpdate(ctx, tx, workflowID)

		return err
	}

	if next != nil {
		insert := `
			INSERT INTO approval_workflows (` + workflowColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`

		_, err = tx.ExecContext(ctx, insert,
			next.ID,
			next.RequestType,
			next.RequestID,
			next.CurrentApproverRole,
			next.CurrentApproverID,
			next.Status,
			next.ApprovedBy,
			next.ApprovedAt,
			next.RejectionReason,
			next.CreatedAt,
			next.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.NewWorkflowError("Transition", workflowID, persistence.ErrWorkflowConflict)
			}

			return persistence.NewWorkflowError("Transition", workflowID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewWorkflowError("Transition", workflowID, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// classifyMissedUpdate distinguishes a missing row from a row that already
// left pending.
func (r *ApprovalRepository) classifyMissedUpdate(ctx context.Context, tx *sql.Tx, workflowID string) error {
	var status string

	err := tx.QueryRowContext(ctx, "SELECT status FROM approval_workflows WHERE id = $1", workflowID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewWorkflowError("Transition", workflowID, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return persistence.NewWorkflowError("Transition", workflowID, err)
	}

	return persistence.NewWorkflowError("Transition", workflowID, persistence.ErrWorkflowNotPending)
}

// PendingForRole lists pending rows for a role joined with their request
// summaries. With a non-empty identityID only rows claimable by that
// identity are returned.
func (r *ApprovalRepository) PendingForRole(ctx context.Context, role models.Role, identityID string) ([]*persistence.PendingApproval, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM approval_workflows w
		LEFT JOIN registration_requests q ON q.id = w.request_id
		WHERE w.status = 'pending' AND w.current_approver_role = $1
	`

	args := []any{role}

	if identityID != "" {
		query += " AND (w.current_approver_id IS NULL OR w.current_approver_id = $2)"

		args = append(args, identityID)
	}

	query += " ORDER BY w.created_at ASC"

	return r.queryJoined(ctx, query, args...)
}

// PendingOlderThan lists pending rows created before the cutoff.
func (r *ApprovalRepository) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*persistence.PendingApproval, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM approval_workflows w
		LEFT JOIN registration_requests q ON q.id = w.request_id
		WHERE w.status = 'pending' AND w.created_at < $1
		ORDER BY w.created_at ASC
	`

	return r.queryJoined(ctx, query, cutoff)
}

// HistoryForRequest returns every row for the request, oldest first.
func (r *ApprovalRepository) HistoryForRequest(ctx context.Context, requestID string) ([]*models.ApprovalWorkflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM approval_workflows
		WHERE request_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, persistence.NewRequestError("HistoryForRequest", requestID, err)
	}

	defer r.closeRows(ctx, rows)

	history := make([]*models.ApprovalWorkflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewRequestError("HistoryForRequest", requestID, err)
		}

		history = append(history, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRequestError("HistoryForRequest", requestID, err)
	}

	return history, nil
}

// Statistics aggregates counts and average approval latency per request type,
// optionally scoped to one college.
func (r *ApprovalRepository) Statistics(ctx context.Context, filter persistence.StatisticsFilter) (*models.StatisticsReport, error) {
	query := `
		SELECT
			w.request_type
		  , w.status
		  , COUNT(*)
		  , COALESCE(AVG(EXTRACT(EPOCH FROM (w.approved_at - w.created_at))), 0)
		FROM approval_workflows w
	`

	args := []any{}

	if filter.CollegeID != "" {
		query += `
		JOIN registration_requests q ON q.id = w.request_id
		WHERE q.college_id = $1
		`

		args = append(args, filter.CollegeID)
	}

	query += " GROUP BY w.request_type, w.status"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}

	defer r.closeRows(ctx, rows)

	byType := make(map[models.RequestType]*models.TypeStatistics)
	report := &models.StatisticsReport{ByType: make([]*models.TypeStatistics, 0)}

	for rows.Next() {
		var (
			requestType models.RequestType
			status      models.ApprovalStatus
			count       int64
			avgSeconds  float64
		)

		if err := rows.Scan(&requestType, &status, &count, &avgSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}

		stats, ok := byType[requestType]
		if !ok {
			stats = &models.TypeStatistics{RequestType: requestType}
			byType[requestType] = stats
		}

		switch status {
		case models.ApprovalStatusPending:
			stats.Pending = count
			report.TotalPending += count
		case models.ApprovalStatusApproved:
			stats.Approved = count
			stats.AvgApprovalSeconds = avgSeconds
			report.TotalApproved += count
		case models.ApprovalStatusRejected:
			stats.Rejected = count
			report.TotalRejected += count
		case models.ApprovalStatusEscalated:
			stats.Escalated = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statistics: %w", err)
	}

	for _, stats := range byType {
		report.ByType = append(report.ByType, stats)
	}

	sort.Slice(report.ByType, func(i, j int) bool {
		return report.ByType[i].RequestType < report.ByType[j].RequestType
	})

	return report, nil
}

const joinedColumns = `
			w.id
		  , w.request_type
		  , w.request_id
		  , w.current_approver_role
		  , w.current_approver_id
		  , w.status
		  , w.approved_by
		  , w.approved_at
		  , w.rejection_reason
		  , w.created_at
		  , w.updated_at
		  , q.id
		  , q.type
		  , q.name
		  , q.email
		  , q.department_id
		  , q.college_id
		  , q.class_id
		  , q.status
		  , q.created_at
		  , q.updated_at
`

func (r *ApprovalRepository) queryJoined(ctx context.Context, query string, args ...any) ([]*persistence.PendingApproval, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}

	defer r.closeRows(ctx, rows)

	entries := make([]*persistence.PendingApproval, 0)

	for rows.Next() {
		entry, err := scanJoined(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending approvals: %w", err)
	}

	return entries, nil
}

func (r *ApprovalRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.ApprovalWorkflow, error) {
	var workflow models.ApprovalWorkflow

	err := row.Scan(
		&workflow.ID,
		&workflow.RequestType,
		&workflow.RequestID,
		&workflow.CurrentApproverRole,
		&workflow.CurrentApproverID,
		&workflow.Status,
		&workflow.ApprovedBy,
		&workflow.ApprovedAt,
		&workflow.RejectionReason,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func scanJoined(row rowScanner) (*persistence.PendingApproval, error) {
	var (
		workflow models.ApprovalWorkflow

		requestID    sql.NullString
		requestType  sql.NullString
		name         sql.NullString
		email        sql.NullString
		departmentID sql.NullString
		collegeID    sql.NullString
		classID      sql.NullString
		status       sql.NullString
		createdAt    sql.NullTime
		updatedAt    sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.RequestType,
		&workflow.RequestID,
		&workflow.CurrentApproverRole,
		&workflow.CurrentApproverID,
		&workflow.Status,
		&workflow.ApprovedBy,
		&workflow.ApprovedAt,
		&workflow.RejectionReason,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&requestID,
		&requestType,
		&name,
		&email,
		&departmentID,
		&collegeID,
		&classID,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry := &persistence.PendingApproval{Workflow: &workflow}

	if requestID.Valid {
		request := &models.RegistrationRequest{
			ID:           requestID.String,
			Type:         models.RequestType(requestType.String),
			Name:         name.String,
			Email:        email.String,
			DepartmentID: departmentID.String,
			CollegeID:    collegeID.String,
			Status:       models.RequestStatus(status.String),
			CreatedAt:    createdAt.Time,
			UpdatedAt:    updatedAt.Time,
		}
		if classID.Valid {
			request.ClassID = &classID.String
		}

		entry.Request = request
	}

	return entry, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
