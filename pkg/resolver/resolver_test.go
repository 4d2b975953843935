package resolver

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/campushq/approvia/pkg/mocks"
	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func newTestResolver(directory Directory) *Resolver {
	return NewResolver(directory, slog.Default())
}

func TestResolve_StaffPrefersClassInCharge(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}

	inCharge := &models.Identity{ID: "staff-1", Role: models.RoleStaff, Active: true}

	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RoleStaff,
		persistence.Scope{DepartmentID: "cs", ClassInChargeID: "cs-2a"}).Return(inCharge, nil)

	resolver := newTestResolver(directory)

	identity, err := resolver.Resolve(t.Context(), models.RoleStaff, models.ApprovalContext{
		DepartmentID: "cs",
		CollegeID:    "main",
		ClassID:      strPtr("cs-2a"),
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "staff-1", identity.ID)

	directory.AssertNumberOfCalls(t, "FindActiveByRoleAndScope", 1)
}

func TestResolve_StaffFallsBackToDepartment(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}

	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RoleStaff,
		persistence.Scope{DepartmentID: "cs", ClassInChargeID: "cs-2a"}).Return(nil, nil)

	deptStaff := &models.Identity{ID: "staff-2", Role: models.RoleStaff, Active: true}
	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RoleStaff,
		persistence.Scope{DepartmentID: "cs"}).Return(deptStaff, nil)

	resolver := newTestResolver(directory)

	identity, err := resolver.Resolve(t.Context(), models.RoleStaff, models.ApprovalContext{
		DepartmentID: "cs",
		CollegeID:    "main",
		ClassID:      strPtr("cs-2a"),
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "staff-2", identity.ID)
}

func TestResolve_StaffWithoutClassSkipsClassStrategy(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}

	deptStaff := &models.Identity{ID: "staff-3", Role: models.RoleStaff, Active: true}
	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RoleStaff,
		persistence.Scope{DepartmentID: "cs"}).Return(deptStaff, nil)

	resolver := newTestResolver(directory)

	identity, err := resolver.Resolve(t.Context(), models.RoleStaff, models.ApprovalContext{
		DepartmentID: "cs",
		CollegeID:    "main",
	})
	require.NoError(t, err)
	require.NotNil(t, identity)

	directory.AssertNumberOfCalls(t, "FindActiveByRoleAndScope", 1)
}

func TestResolve_PrincipalScopesToCollege(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}

	principal := &models.Identity{ID: "principal-1", Role: models.RolePrincipal, Active: true}
	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RolePrincipal,
		persistence.Scope{CollegeID: "main"}).Return(principal, nil)

	resolver := newTestResolver(directory)

	identity, err := resolver.Resolve(t.Context(), models.RolePrincipal, models.ApprovalContext{
		DepartmentID: "cs",
		CollegeID:    "main",
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "principal-1", identity.ID)
}

func TestResolve_AdminIsUnscoped(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}

	admin := &models.Identity{ID: "admin-1", Role: models.RoleAdmin, Active: true}
	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RoleAdmin,
		persistence.Scope{}).Return(admin, nil)

	resolver := newTestResolver(directory)

	identity, err := resolver.Resolve(t.Context(), models.RoleAdmin, models.ApprovalContext{
		DepartmentID: "cs",
		CollegeID:    "main",
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
}

// Finding nobody is a valid outcome: the step stays open for any holder of
// the role.
func TestResolve_NoMatchIsNotAnError(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}

	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RoleHOD,
		mock.Anything).Return(nil, nil)

	resolver := newTestResolver(directory)

	identity, err := resolver.Resolve(t.Context(), models.RoleHOD, models.ApprovalContext{
		DepartmentID: "cs",
		CollegeID:    "main",
	})
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestResolve_UnknownRoleResolvesToNil(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}
	resolver := newTestResolver(directory)

	identity, err := resolver.Resolve(t.Context(), models.Role("dean"), models.ApprovalContext{})
	require.NoError(t, err)
	assert.Nil(t, identity)

	directory.AssertNotCalled(t, "FindActiveByRoleAndScope")
}

func TestResolve_DirectoryErrorPropagates(t *testing.T) {
	directory := &mocks.MockIdentityRepository{}

	directory.On("FindActiveByRoleAndScope", mock.Anything, models.RoleHOD,
		mock.Anything).Return(nil, errors.New("directory down"))

	resolver := newTestResolver(directory)

	_, err := resolver.Resolve(t.Context(), models.RoleHOD, models.ApprovalContext{DepartmentID: "cs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "department_head")
}
