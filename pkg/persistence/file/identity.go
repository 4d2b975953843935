package file

import (
	"context"
	"sort"
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
)

const identityKind = "identities"

// IdentityRepository handles identity-directory file operations.
type IdentityRepository struct {
	store *store
}

// NewIdentityRepository creates a new identity repository.
func NewIdentityRepository(s *store) *IdentityRepository {
	return &IdentityRepository{store: s}
}

func (r *IdentityRepository) Save(_ context.Context, identity *models.Identity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}

	identity.UpdatedAt = now

	return r.store.write(identityKind, identity.ID, identity)
}

func (r *IdentityRepository) GetByID(_ context.Context, id string) (*models.Identity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var identity models.Identity

	found, err := r.store.read(identityKind, id, &identity)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrIdentityNotFound
	}

	return &identity, nil
}

// FindActiveByRoleAndScope returns an active identity holding the role within
// the scope, or nil when none matches. Candidates are scanned in ID order so
// resolution is deterministic for tests.
func (r *IdentityRepository) FindActiveByRoleAndScope(_ context.Context, role models.Role, scope persistence.Scope) (*models.Identity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ids, err := r.store.list(identityKind)
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)

	for _, id := range ids {
		var identity models.Identity

		found, err := r.store.read(identityKind, id, &identity)
		if err != nil {
			return nil, err
		}

		if found && matches(&identity, role, scope) {
			return &identity, nil
		}
	}

	return nil, nil
}

func matches(identity *models.Identity, role models.Role, scope persistence.Scope) bool {
	if !identity.Active || identity.Role != role {
		return false
	}

	if scope.DepartmentID != "" && identity.DepartmentID != scope.DepartmentID {
		return false
	}

	if scope.CollegeID != "" && identity.CollegeID != scope.CollegeID {
		return false
	}

	if scope.ClassInChargeID != "" {
		if identity.ClassInChargeID == nil || *identity.ClassInChargeID != scope.ClassInChargeID {
			return false
		}
	}

	return true
}
