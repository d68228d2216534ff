// Package access holds the role hierarchy, the cached request principal and
// the declarative route description used to build the HTTP surface.
package access

import (
	"fmt"

	"safeguard/internal/models"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// roleModel grants an area to a role and, through g, to every role that
// inherits from it.
const roleModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Enforcer answers "does role X reach at least role Y" using the
// super_admin > admin > user hierarchy.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer loads the fixed role hierarchy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(roleModel)
	if err != nil {
		return nil, fmt.Errorf("load role model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, r := range []models.Role{models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin} {
		if _, err := e.AddPolicy(string(r), area(r)); err != nil {
			return nil, err
		}
	}
	if _, err := e.AddGroupingPolicy(string(models.RoleAdmin), string(models.RoleUser)); err != nil {
		return nil, err
	}
	if _, err := e.AddGroupingPolicy(string(models.RoleSuperAdmin), string(models.RoleAdmin)); err != nil {
		return nil, err
	}

	return &Enforcer{e: e}, nil
}

func area(r models.Role) string {
	return "area:" + string(r)
}

// AtLeast reports whether role is min or above it. An empty min is open to
// every authenticated role.
func (en *Enforcer) AtLeast(role, min models.Role) bool {
	if min == "" {
		return role.Valid()
	}
	if !role.Valid() {
		return false
	}
	ok, err := en.e.Enforce(string(role), area(min))
	return err == nil && ok
}
