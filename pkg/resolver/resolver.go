// Package resolver maps an abstract approver role to a concrete identity
// using the organizational context of the originating request.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campushq/approvia/pkg/models"
	"github.com/campushq/approvia/pkg/persistence"
)

// Directory is the slice of the identity directory the resolver reads.
type Directory interface {
	FindActiveByRoleAndScope(ctx context.Context, role models.Role, scope persistence.Scope) (*models.Identity, error)
}

// lookup is one resolution strategy: a named scope derivation for a role.
// scope returns false to skip the strategy when the request context lacks
// the coordinates it needs.
type lookup struct {
	name  string
	scope func(models.ApprovalContext) (persistence.Scope, bool)
}

// Resolver resolves approvers by evaluating an ordered strategy list per
// role, first match wins. It only ever reads the directory; finding nobody
// is a valid outcome that leaves the approval step open for any holder of
// the role.
type Resolver struct {
	directory  Directory
	logger     *slog.Logger
	strategies map[models.Role][]lookup
}

// NewResolver creates a resolver with the standard strategy lists: staff
// steps prefer the class-in-charge within the department and fall back to
// any departmental staff; hod steps scope to the department; principal steps
// to the college; admin steps are unscoped.
func NewResolver(directory Directory, logger *slog.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		logger:    logger,
		strategies: map[models.Role][]lookup{
			models.RoleStaff: {
				{
					name: "class_in_charge",
					scope: func(c models.ApprovalContext) (persistence.Scope, bool) {
						if c.ClassID == nil || *c.ClassID == "" {
							return persistence.Scope{}, false
						}

						return persistence.Scope{DepartmentID: c.DepartmentID, ClassInChargeID: *c.ClassID}, true
					},
				},
				{
					name: "department_staff",
					scope: func(c models.ApprovalContext) (persistence.Scope, bool) {
						return persistence.Scope{DepartmentID: c.DepartmentID}, true
					},
				},
			},
			models.RoleHOD: {
				{
					name: "department_head",
					scope: func(c models.ApprovalContext) (persistence.Scope, bool) {
						return persistence.Scope{DepartmentID: c.DepartmentID}, true
					},
				},
			},
			models.RolePrincipal: {
				{
					name: "college_principal",
					scope: func(c models.ApprovalContext) (persistence.Scope, bool) {
						return persistence.Scope{CollegeID: c.CollegeID}, true
					},
				},
			},
			models.RoleAdmin: {
				{
					name: "any_admin",
					scope: func(_ models.ApprovalContext) (persistence.Scope, bool) {
						return persistence.Scope{}, true
					},
				},
			},
		},
	}
}

// Resolve returns an identity currently eligible to act in the role for the
// given request context, or nil when none exists. An unknown role resolves
// to nil.
func (r *Resolver) Resolve(ctx context.Context, role models.Role, reqCtx models.ApprovalContext) (*models.Identity, error) {
	for _, strategy := range r.strategies[role] {
		scope, ok := strategy.scope(reqCtx)
		if !ok {
			continue
		}

		identity, err := r.directory.FindActiveByRoleAndScope(ctx, role, scope)
		if err != nil {
			return nil, fmt.Errorf("directory lookup %s for role %s failed: %w", strategy.name, role, err)
		}

		if identity != nil {
			r.logger.DebugContext(ctx, "Resolved approver",
				"role", role,
				"strategy", strategy.name,
				"identity_id", identity.ID,
			)

			return identity, nil
		}
	}

	r.logger.DebugContext(ctx, "No approver resolved, step stays open", "role", role)

	return nil, nil
}
