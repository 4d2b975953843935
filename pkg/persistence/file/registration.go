package file

import (
	"context"
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
)

const requestKind = "requests"

// RegistrationRepository handles registration-request file operations.
type RegistrationRepository struct {
	store *store
}

// NewRegistrationRepository creates a new registration repository.
func NewRegistrationRepository(s *store) *RegistrationRepository {
	return &RegistrationRepository{store: s}
}

func (r *RegistrationRepository) Create(_ context.Context, request *models.RegistrationRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}

	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}

	if err := r.store.write(requestKind, request.ID, request); err != nil {
		return persistence.NewRequestError("Create", request.ID, err)
	}

	return nil
}

func (r *RegistrationRepository) GetByID(_ context.Context, id string) (*models.RegistrationRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}

	if request == nil {
		return nil, persistence.NewRequestError("GetByID", id, persistence.ErrRequestNotFound)
	}

	return request, nil
}

// getLocked returns nil without error when the request does not exist, so
// joins over workflow rows tolerate missing request records.
func (r *RegistrationRepository) getLocked(id string) (*models.RegistrationRequest, error) {
	var request models.RegistrationRequest

	found, err := r.store.read(requestKind, id, &request)
	if err != nil {
		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	if !found {
		return nil, nil
	}

	return &request, nil
}

func (r *RegistrationRepository) UpdateStatus(_ context.Context, id string, status models.RequestStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.updateStatusLocked(id, status)
}

func (r *RegistrationRepository) updateStatusLocked(id string, status models.RequestStatus) error {
	request, err := r.getLocked(id)
	if err != nil {
		return err
	}

	if request == nil {
		return persistence.NewRequestError("UpdateStatus", id, persistence.ErrRequestNotFound)
	}

	request.Status = status
	request.UpdatedAt = time.Now().UTC()

	if err := r.store.write(requestKind, id, request); err != nil {
		return persistence.NewRequestError("UpdateStatus", id, err)
	}

	return nil
}

func (r *RegistrationRepository) Activate(_ context.Context, id string) (*models.RegistrationRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.updateStatusLocked(id, models.RequestStatusActivated); err != nil {
		return nil, err
	}

	return r.getLocked(id)
}
