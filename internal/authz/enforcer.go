package authz

import (
	"fmt"

	"estate-backend/internal/constants"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/rs/zerolog/log"
)

// RBAC with role inheritance: a role holds its own grants plus every grant of its parent.
const modelText = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.act == p.act
`

// Enforcer answers role/permission questions from the static role table.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// New loads constants.RoleGrants and constants.RoleParents into a Casbin enforcer.
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	for _, role := range constants.ValidRoles {
		for _, perm := range constants.RoleGrants[role] {
			if _, err := e.AddPolicy(role, perm); err != nil {
				return nil, fmt.Errorf("add policy %s/%s: %w", role, perm, err)
			}
		}
	}
	for child, parent := range constants.RoleParents {
		if _, err := e.AddGroupingPolicy(child, parent); err != nil {
			return nil, fmt.Errorf("add role link %s->%s: %w", child, parent, err)
		}
	}
	return &Enforcer{enforcer: e}, nil
}

// MustNew is New for package-level wiring; the table is static so failure is a programming error.
func MustNew() *Enforcer {
	e, err := New()
	if err != nil {
		panic(err)
	}
	return e
}

// Allowed reports whether role holds permission. Empty and unknown roles hold nothing.
func (e *Enforcer) Allowed(role, permission string) bool {
	if role == "" || !constants.IsValidRole(role) {
		return false
	}
	ok, err := e.enforcer.Enforce(role, permission)
	if err != nil {
		log.Error().Err(err).Str("role", role).Str("permission", permission).Msg("authorization check failed")
		return false
	}
	return ok
}

// Permissions returns every permission role holds.
func (e *Enforcer) Permissions(role string) []string {
	var out []string
	for _, p := range constants.AllPermissions() {
		if e.Allowed(role, p) {
			out = append(out, p)
		}
	}
	return out
}
