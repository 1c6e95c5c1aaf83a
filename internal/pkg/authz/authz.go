package authz

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
)

const modelText = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Enforcer answers role/permission questions from a casbin policy.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds a policy with one rule per (role, permission) pair.
// Permissions are "object.action" strings.
func NewEnforcer(rolePermissions map[user.Role][]user.Permission) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	for role, perms := range rolePermissions {
		for _, perm := range perms {
			obj, act, ok := splitPermission(perm)
			if !ok {
				return nil, fmt.Errorf("malformed permission %q", perm)
			}
			if _, err := e.AddPolicy(string(role), obj, act); err != nil {
				return nil, fmt.Errorf("add policy %s %s: %w", role, perm, err)
			}
		}
	}

	return &Enforcer{enforcer: e}, nil
}

// Can reports whether role holds permission. Enforcement errors deny.
func (e *Enforcer) Can(role user.Role, permission user.Permission) bool {
	obj, act, ok := splitPermission(permission)
	if !ok {
		return false
	}
	allowed, err := e.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		slog.Error("authz enforce failed", "role", role, "permission", permission, "error", err)
		return false
	}
	return allowed
}

func splitPermission(p user.Permission) (obj, act string, ok bool) {
	obj, act, ok = strings.Cut(string(p), ".")
	return obj, act, ok && obj != "" && act != ""
}
