package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
	"github.com/campushq/approvia/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"approval_workflows", "identities", "registration_requests", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("approvia_test"),
			postgres.WithUsername("approvia"),
			postgres.WithPassword("approvia"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func seedRequest(ctx context.Context, t *testing.T, p *postgresql.Persistence, id string) {
	t.Helper()

	now := time.Now().UTC()
	require.NoError(t, p.RegistrationRepository().Create(ctx, &models.RegistrationRequest{
		ID:           id,
		Type:         models.RequestTypeStudent,
		Name:         "Asha Iyer",
		Email:        "asha@x.edu",
		DepartmentID: "cs",
		CollegeID:    "north",
		Status:       models.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func pendingWorkflow(requestID string, role models.Role) *models.ApprovalWorkflow {
	now := time.Now().UTC()

	return &models.ApprovalWorkflow{
		ID:                  uuid.NewString(),
		RequestType:         models.RequestTypeStudent,
		RequestID:           requestID,
		CurrentApproverRole: role,
		Status:              models.ApprovalStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	for _, table := range []string{"registration_requests", "identities", "approval_workflows"} {
		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestApprovalRepository_CreateAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	seedRequest(ctx, t, p, "req-1")

	workflow := pendingWorkflow("req-1", models.RoleStaff)
	require.NoError(t, p.ApprovalRepository().Create(ctx, workflow))

	retrieved, err := p.ApprovalRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestID, retrieved.RequestID)
	assert.Equal(t, models.ApprovalStatusPending, retrieved.Status)
	assert.Nil(t, retrieved.CurrentApproverID)

	_, err = p.ApprovalRepository().GetByID(ctx, uuid.NewString())
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

// The partial unique index rejects a second pending row for one request.
func TestApprovalRepository_SinglePendingIndex(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	seedRequest(ctx, t, p, "req-1")

	require.NoError(t, p.ApprovalRepository().Create(ctx, pendingWorkflow("req-1", models.RoleStaff)))

	err := p.ApprovalRepository().Create(ctx, pendingWorkflow("req-1", models.RoleHOD))
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowConflict(err))
}

func TestApprovalRepository_Transition(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	seedRequest(ctx, t, p, "req-1")

	workflow := pendingWorkflow("req-1", models.RoleStaff)
	require.NoError(t, p.ApprovalRepository().Create(ctx, workflow))

	decision := persistence.Decision{
		Status:  models.ApprovalStatusApproved,
		ActedBy: "staff-1",
		ActedAt: time.Now().UTC(),
	}
	next := pendingWorkflow("req-1", models.RoleHOD)

	require.NoError(t, p.ApprovalRepository().Transition(ctx, workflow.ID, decision, next))

	decided, err := p.ApprovalRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, "staff-1", *decided.ApprovedBy)

	successor, err := p.ApprovalRepository().GetByID(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, successor.Status)

	// A second transition on the decided row observes the stale state.
	err = p.ApprovalRepository().Transition(ctx, workflow.ID, decision, nil)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotPending(err))

	// A transition on a missing row reports not-found.
	err = p.ApprovalRepository().Transition(ctx, uuid.NewString(), decision, nil)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestApprovalRepository_PendingForRole(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	seedRequest(ctx, t, p, "req-1")
	seedRequest(ctx, t, p, "req-2")

	open := pendingWorkflow("req-1", models.RoleHOD)
	require.NoError(t, p.ApprovalRepository().Create(ctx, open))

	approver := "hod-2"
	bound := pendingWorkflow("req-2", models.RoleHOD)
	bound.CurrentApproverID = &approver
	require.NoError(t, p.ApprovalRepository().Create(ctx, bound))

	all, err := p.ApprovalRepository().PendingForRole(ctx, models.RoleHOD, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// hod-1 sees only the open step; the other row is bound to hod-2.
	inbox, err := p.ApprovalRepository().PendingForRole(ctx, models.RoleHOD, "hod-1")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, open.ID, inbox[0].Workflow.ID)
	require.NotNil(t, inbox[0].Request)
	assert.Equal(t, "req-1", inbox[0].Request.ID)
}

func TestApprovalRepository_HistoryAndStatistics(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	seedRequest(ctx, t, p, "req-1")

	first := pendingWorkflow("req-1", models.RoleStaff)
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, p.ApprovalRepository().Create(ctx, first))

	decision := persistence.Decision{
		Status:  models.ApprovalStatusApproved,
		ActedBy: "staff-1",
		ActedAt: time.Now().UTC(),
	}
	second := pendingWorkflow("req-1", models.RoleHOD)
	require.NoError(t, p.ApprovalRepository().Transition(ctx, first.ID, decision, second))

	history, err := p.ApprovalRepository().HistoryForRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)

	report, err := p.ApprovalRepository().Statistics(ctx, persistence.StatisticsFilter{})
	require.NoError(t, err)
	require.Len(t, report.ByType, 1)
	assert.Equal(t, int64(1), report.TotalApproved)
	assert.Equal(t, int64(1), report.TotalPending)
	assert.Greater(t, report.ByType[0].AvgApprovalSeconds, 0.0)

	scoped, err := p.ApprovalRepository().Statistics(ctx, persistence.StatisticsFilter{CollegeID: "south"})
	require.NoError(t, err)
	assert.Empty(t, scoped.ByType)
}

func TestIdentityRepository_Postgres(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	class := "cs-2a"
	now := time.Now().UTC()

	identity := &models.Identity{
		ID: "staff-1", Name: "Meera Nair", Email: "meera@x.edu",
		Role: models.RoleStaff, DepartmentID: "cs", CollegeID: "north",
		ClassInChargeID: &class, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, p.IdentityRepository().Save(ctx, identity))

	retrieved, err := p.IdentityRepository().GetByID(ctx, "staff-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved.ClassInChargeID)
	assert.Equal(t, "cs-2a", *retrieved.ClassInChargeID)

	found, err := p.IdentityRepository().FindActiveByRoleAndScope(ctx, models.RoleStaff,
		persistence.Scope{DepartmentID: "cs", ClassInChargeID: "cs-2a"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "staff-1", found.ID)

	none, err := p.IdentityRepository().FindActiveByRoleAndScope(ctx, models.RoleHOD,
		persistence.Scope{DepartmentID: "cs"})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRegistrationRepository_Postgres(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	seedRequest(ctx, t, p, "req-1")

	require.NoError(t, p.RegistrationRepository().UpdateStatus(ctx, "req-1", models.RequestStatusApproved))

	activated, err := p.RegistrationRepository().Activate(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusActivated, activated.Status)

	_, err = p.RegistrationRepository().GetByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsRequestNotFound(err))
}
