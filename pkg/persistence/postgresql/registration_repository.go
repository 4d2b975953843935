package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
)

const requestColumns = `
			id
		  , type
		  , name
		  , email
		  , department_id
		  , college_id
		  , class_id
		  , status
		  , created_at
		  , updated_at
`

// RegistrationRepository handles registration-request database operations.
type RegistrationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRegistrationRepository creates a new registration repository.
func NewRegistrationRepository(db *sql.DB, logger *slog.Logger) *RegistrationRepository {
	return &RegistrationRepository{db: db, logger: logger}
}

func (r *RegistrationRepository) Create(ctx context.Context, request *models.RegistrationRequest) error {
	now := time.Now().UTC()

	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}

	request.UpdatedAt = now

	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}

	query := `
		INSERT INTO registration_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.Type,
		request.Name,
		request.Email,
		request.DepartmentID,
		request.CollegeID,
		request.ClassID,
		request.Status,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRequestError("Create", request.ID, err)
	}

	return nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM registration_requests
		WHERE id = $1
	`

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRequestError("GetByID", id, persistence.ErrRequestNotFound)
		}

		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	return request, nil
}

func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error {
	query := `
		UPDATE registration_requests
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return persistence.NewRequestError("UpdateStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRequestError("UpdateStatus", id, err)
	}

	if affected == 0 {
		return persistence.NewRequestError("UpdateStatus", id, persistence.ErrRequestNotFound)
	}

	return nil
}

func (r *RegistrationRepository) Activate(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	if err := r.UpdateStatus(ctx, id, models.RequestStatusActivated); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func scanRequest(row rowScanner) (*models.RegistrationRequest, error) {
	var request models.RegistrationRequest

	err := row.Scan(
		&request.ID,
		&request.Type,
		&request.Name,
		&request.Email,
		&request.DepartmentID,
		&request.CollegeID,
		&request.ClassID,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &request, nil
}
