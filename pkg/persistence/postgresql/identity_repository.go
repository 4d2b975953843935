package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
)

const identityColumns = `
			id
		  , name
		  , email
		  , role
		  , department_id
		  , college_id
		  , class_in_charge_id
		  , active
		  , created_at
		  , updated_at
`

// IdentityRepository handles identity-directory database operations.
type IdentityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewIdentityRepository creates a new identity repository.
func NewIdentityRepository(db *sql.DB, logger *slog.Logger) *IdentityRepository {
	return &IdentityRepository{db: db, logger: logger}
}

func (r *IdentityRepository) Save(ctx context.Context, identity *models.Identity) error {
	now := time.Now().UTC()

	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}

	identity.UpdatedAt = now

	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , email = EXCLUDED.email
		  , role = EXCLUDED.role
		  , department_id = EXCLUDED.department_id
		  , college_id = EXCLUDED.college_id
		  , class_in_charge_id = EXCLUDED.class_in_charge_id
		  , active = EXCLUDED.active
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		identity.ID,
		identity.Name,
		identity.Email,
		identity.Role,
		identity.DepartmentID,
		identity.CollegeID,
		identity.ClassInChargeID,
		identity.Active,
		identity.CreatedAt,
		identity.UpdatedAt,
	)

	return err
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE id = $1
	`

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrIdentityNotFound
		}

		return nil, err
	}

	return identity, nil
}

// FindActiveByRoleAndScope returns an active identity holding the role within
// the scope, or nil when none matches. Candidates are ordered by ID so
// resolution is deterministic.
func (r *IdentityRepository) FindActiveByRoleAndScope(ctx context.Context, role models.Role, scope persistence.Scope) (*models.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE active = true AND role = $1
	`

	args := []any{role}

	if scope.DepartmentID != "" {
		args = append(args, scope.DepartmentID)
		query += fmt.Sprintf(" AND department_id = $%d", len(args))
	}

	if scope.CollegeID != "" {
		args = append(args, scope.CollegeID)
		query += fmt.Sprintf(" AND college_id = $%d", len(args))
	}

	if scope.ClassInChargeID != "" {
		args = append(args, scope.ClassInChargeID)
		query += fmt.Sprintf(" AND class_in_charge_id = $%d", len(args))
	}

	query += " ORDER BY id ASC LIMIT 1"

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return identity, nil
}

func scanIdentity(row rowScanner) (*models.Identity, error) {
	var identity models.Identity

	err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.Role,
		&identity.DepartmentID,
		&identity.CollegeID,
		&identity.ClassInChargeID,
		&identity.Active,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &identity, nil
}
