package auth

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       user.Role
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns ErrUnauthorized when no caller was attached.
func CallerFromContext(ctx context.Context) (Caller, error) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	if !ok {
		return Caller{}, ErrUnauthorized
	}
	if c.CompanyID == "" {
		return Caller{}, ErrCompanyRequired
	}
	return c, nil
}

// Authorizer decides whether a role holds a permission.
type Authorizer interface {
	Can(role user.Role, permission user.Permission) bool
}
