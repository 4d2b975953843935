package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campushq/approvia/pkg/chain"
	"github.com/campushq/approvia/pkg/mocks"
	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence/file"
	"github.com/campushq/approvia/pkg/services"
	"github.com/campushq/approvia/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app         *fiber.App
	persistence *file.Persistence
	eventBus    *mocks.MockEventBus
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	approvalService := services.NewApproval(persistence, chain.Default(), slog.Default())
	validate := validator.New(validator.WithRequiredStructEnabled())

	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	handlers := web.NewAPIHandlers(approvalService, persistence, eventBus, validate, slog.Default())

	app := fiber.New()
	app.Post("/registrations", handlers.CreateRegistration)

	approvals := app.Group("/approvals")
	approvals.Get("/pending", handlers.GetPendingApprovals)
	approvals.Post("/:id/approve", handlers.ApproveStep)
	approvals.Post("/:id/reject", handlers.RejectStep)
	approvals.Get("/requests/:requestId/history", handlers.GetApprovalHistory)
	approvals.Get("/statistics", handlers.GetStatistics)
	app.Get("/health", handlers.HealthCheck)

	return &testEnv{app: app, persistence: persistence, eventBus: eventBus}
}

func (e *testEnv) seedIdentity(t *testing.T, identity *models.Identity) {
	t.Helper()
	require.NoError(t, e.persistence.IdentityRepository().Save(t.Context(), identity))
}

func (e *testEnv) seedDirectory(t *testing.T) {
	t.Helper()

	e.seedIdentity(t, &models.Identity{
		ID: "staff-1", Name: "Meera Nair", Email: "meera@x.edu",
		Role: models.RoleStaff, DepartmentID: "cs", CollegeID: "north", Active: true,
	})
	e.seedIdentity(t, &models.Identity{
		ID: "hod-1", Name: "Dr. Rao", Email: "rao@x.edu",
		Role: models.RoleHOD, DepartmentID: "cs", CollegeID: "north", Active: true,
	})
	e.seedIdentity(t, &models.Identity{
		ID: "principal-1", Name: "Dr. Bose", Email: "bose@x.edu",
		Role: models.RolePrincipal, CollegeID: "north", Active: true,
	})
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(data, &out))

	return out
}

func (e *testEnv) createRegistration(t *testing.T) web.RegistrationResponse {
	t.Helper()

	resp := e.postJSON(t, "/registrations", web.CreateRegistrationRequest{
		Type:         "student",
		Name:         "Asha Iyer",
		Email:        "asha@x.edu",
		DepartmentID: "cs",
		CollegeID:    "north",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeBody[web.RegistrationResponse](t, resp)
}

func TestCreateRegistration(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	assert.NotEmpty(t, created.Request.ID)
	assert.Equal(t, models.RequestStatusPending, created.Request.Status)
	require.NotNil(t, created.Workflow)
	assert.Equal(t, models.RoleStaff, created.Workflow.CurrentApproverRole)
	assert.Equal(t, models.ApprovalStatusPending, created.Workflow.Status)
}

func TestCreateRegistration_ValidationError(t *testing.T) {
	env := setupTestApp(t)

	resp := env.postJSON(t, "/registrations", web.CreateRegistrationRequest{
		Type: "alien",
		Name: "X",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPendingApprovals(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)
	env.createRegistration(t)

	resp := env.get(t, "/approvals/pending?role=staff&identity_id=staff-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]json.RawMessage](t, resp)

	var count int
	require.NoError(t, json.Unmarshal(body["count"], &count))
	assert.Equal(t, 1, count)
}

func TestGetPendingApprovals_MissingRole(t *testing.T) {
	env := setupTestApp(t)

	resp := env.get(t, "/approvals/pending")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveStep_AdvancesChain(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/approve", web.ApproveRequest{
		ApproverID: "staff-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[web.ApproveResponse](t, resp)
	assert.False(t, result.Finalized)
	require.NotNil(t, result.NextStep)
	assert.Equal(t, models.RoleHOD, result.NextStep.CurrentApproverRole)

	env.eventBus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestApproveStep_FinalizesAndActivates(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	approvers := []string{"staff-1", "hod-1", "principal-1"}
	workflowID := created.Workflow.ID

	for i, approverID := range approvers {
		resp := env.postJSON(t, "/approvals/"+workflowID+"/approve", web.ApproveRequest{
			ApproverID: approverID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody[web.ApproveResponse](t, resp)

		if i < len(approvers)-1 {
			require.False(t, result.Finalized)
			workflowID = result.NextStep.ID
		} else {
			assert.True(t, result.Finalized)
		}
	}

	request, err := env.persistence.RegistrationRepository().GetByID(t.Context(), created.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusActivated, request.Status)

	env.eventBus.AssertNumberOfCalls(t, "Publish", 3)
}

func TestApproveStep_WrongRole(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/approve", web.ApproveRequest{
		ApproverID: "hod-1",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApproveStep_UnknownActor(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/approve", web.ApproveRequest{
		ApproverID: "ghost",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApproveStep_MissingWorkflow(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	resp := env.postJSON(t, "/approvals/nope/approve", web.ApproveRequest{
		ApproverID: "staff-1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApproveStep_AlreadyDecided(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/approve", web.ApproveRequest{
		ApproverID: "staff-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.postJSON(t, "/approvals/"+created.Workflow.ID+"/approve", web.ApproveRequest{
		ApproverID: "staff-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRejectStep(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/reject", web.RejectRequest{
		ApproverID: "staff-1",
		Reason:     "incomplete application",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	request, err := env.persistence.RegistrationRepository().GetByID(t.Context(), created.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, request.Status)

	env.eventBus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestRejectStep_MissingReason(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/reject", web.RejectRequest{
		ApproverID: "staff-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetApprovalHistory(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/approve", web.ApproveRequest{
		ApproverID: "staff-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/approvals/requests/"+created.Request.ID+"/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]json.RawMessage](t, resp)

	var history []*models.ApprovalWorkflow
	require.NoError(t, json.Unmarshal(body["history"], &history))
	require.Len(t, history, 2)
	assert.Equal(t, models.ApprovalStatusApproved, history[0].Status)
	assert.Equal(t, models.ApprovalStatusPending, history[1].Status)
}

func TestGetApprovalHistory_Empty(t *testing.T) {
	env := setupTestApp(t)

	resp := env.get(t, "/approvals/requests/nope/history")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetStatistics(t *testing.T) {
	env := setupTestApp(t)
	env.seedDirectory(t)

	created := env.createRegistration(t)

	resp := env.postJSON(t, "/approvals/"+created.Workflow.ID+"/approve", web.ApproveRequest{
		ApproverID: "staff-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/approvals/statistics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decodeBody[models.StatisticsReport](t, resp)
	assert.Equal(t, int64(1), report.TotalApproved)
	assert.Equal(t, int64(1), report.TotalPending)
}

func TestHealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
