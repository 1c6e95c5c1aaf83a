package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/handler/http/response"
)

// RequirePermission checks if the caller's role has a specific permission.
// Must run after AuthRequired.
func RequirePermission(authorizer auth.Authorizer, permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := auth.CallerFromContext(r.Context())
			if err != nil {
				response.HandleError(w, r, err)
				return
			}

			if !authorizer.Can(caller.Role, permission) {
				slog.Debug("permission denied",
					slog.String("user_id", caller.UserID),
					slog.String("role", string(caller.Role)),
					slog.String("permission", string(permission)),
				)
				response.HandleError(w, r, user.ErrInsufficientPermissions)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
