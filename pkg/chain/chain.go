// Package chain defines the static approval chain per request type: the
// ordered sequence of roles that must approve before a registration is final.
package chain

import (
	"slices"

	"github.com/campushq/approvia/pkg/models"
)

// Definition is an immutable mapping from request type to its ordered
// approval chain. Built once at startup; lookups never fail loudly — an
// unknown request type or role simply yields no next role, which terminates
// the chain instead of advancing it into an undefined state.
type Definition struct {
	chains map[models.RequestType][]models.Role
}

// NewDefinition builds a definition from the given chains. The input is
// copied so later mutation of the argument cannot affect routing.
func NewDefinition(chains map[models.RequestType][]models.Role) *Definition {
	copied := make(map[models.RequestType][]models.Role, len(chains))
	for requestType, roles := range chains {
		copied[requestType] = slices.Clone(roles)
	}

	return &Definition{chains: copied}
}

// Default returns the built-in chains: student registrations route through
// staff, hod and principal; staff through hod and principal; hod through
// principal; principal registrations go straight to a top-level admin.
func Default() *Definition {
	return NewDefinition(map[models.RequestType][]models.Role{
		models.RequestTypeStudent:   {models.RoleStaff, models.RoleHOD, models.RolePrincipal},
		models.RequestTypeStaff:     {models.RoleHOD, models.RolePrincipal},
		models.RequestTypeHOD:       {models.RolePrincipal},
		models.RequestTypePrincipal: {models.RoleAdmin},
	})
}

// Chain returns a copy of the role sequence for the request type, or nil for
// an unknown type.
func (d *Definition) Chain(requestType models.RequestType) []models.Role {
	return slices.Clone(d.chains[requestType])
}

// Length returns the number of roles in the chain for the request type.
func (d *Definition) Length(requestType models.RequestType) int {
	return len(d.chains[requestType])
}

// First returns the head of the chain for the request type. The second
// return is false for an unknown type.
func (d *Definition) First(requestType models.RequestType) (models.Role, bool) {
	roles := d.chains[requestType]
	if len(roles) == 0 {
		return "", false
	}

	return roles[0], true
}

// Next returns the role immediately following current in the chain for the
// request type. The second return is false when current is the last entry,
// is not part of the chain, or the request type is unknown.
func (d *Definition) Next(requestType models.RequestType, current models.Role) (models.Role, bool) {
	roles := d.chains[requestType]

	idx := slices.Index(roles, current)
	if idx < 0 || idx+1 >= len(roles) {
		return "", false
	}

	return roles[idx+1], true
}

// Contains reports whether role appears anywhere in the chain for the
// request type.
func (d *Definition) Contains(requestType models.RequestType, role models.Role) bool {
	return slices.Contains(d.chains[requestType], role)
}
