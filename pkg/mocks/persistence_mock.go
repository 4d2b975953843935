package mocks

import (
	"context"
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockApprovalRepository is a mock implementation of persistence.ApprovalRepository interface.
type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) Create(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalWorkflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ApprovalWorkflow), args.Error(1)
}

func (m *MockApprovalRepository) Transition(ctx context.Context, workflowID string, decision persistence.Decision, next *models.ApprovalWorkflow) error {
	args := m.Called(ctx, workflowID, decision, next)

	return args.Error(0)
}

func (m *MockApprovalRepository) PendingForRole(ctx context.Context, role models.Role, identityID string) ([]*persistence.PendingApproval, error) {
	args := m.Called(ctx, role, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.PendingApproval), args.Error(1)
}

func (m *MockApprovalRepository) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*persistence.PendingApproval, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.PendingApproval), args.Error(1)
}

func (m *MockApprovalRepository) HistoryForRequest(ctx context.Context, requestID string) ([]*models.ApprovalWorkflow, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ApprovalWorkflow), args.Error(1)
}

func (m *MockApprovalRepository) Statistics(ctx context.Context, filter persistence.StatisticsFilter) (*models.StatisticsReport, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.StatisticsReport), args.Error(1)
}

// MockRegistrationRepository is a mock implementation of persistence.RegistrationRepository interface.
type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) Create(ctx context.Context, request *models.RegistrationRequest) error {
	args := m.Called(ctx, request)

	return args.Error(0)
}

func (m *MockRegistrationRepository) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.RegistrationRequest), args.Error(1)
}

func (m *MockRegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *MockRegistrationRepository) Activate(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.RegistrationRequest), args.Error(1)
}

// MockIdentityRepository is a mock implementation of persistence.IdentityRepository interface.
type MockIdentityRepository struct {
	mock.Mock
}

func (m *MockIdentityRepository) Save(ctx context.Context, identity *models.Identity) error {
	args := m.Called(ctx, identity)

	return args.Error(0)
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityRepository) FindActiveByRoleAndScope(ctx context.Context, role models.Role, scope persistence.Scope) (*models.Identity, error) {
	args := m.Called(ctx, role, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Identity), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	ApprovalRepo     *MockApprovalRepository
	RegistrationRepo *MockRegistrationRepository
	IdentityRepo     *MockIdentityRepository
}

// NewMockPersistence wires a MockPersistence with fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		ApprovalRepo:     &MockApprovalRepository{},
		RegistrationRepo: &MockRegistrationRepository{},
		IdentityRepo:     &MockIdentityRepository{},
	}
}

func (m *MockPersistence) ApprovalRepository() persistence.ApprovalRepository {
	return m.ApprovalRepo
}

func (m *MockPersistence) RegistrationRepository() persistence.RegistrationRepository {
	return m.RegistrationRepo
}

func (m *MockPersistence) IdentityRepository() persistence.IdentityRepository {
	return m.IdentityRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
