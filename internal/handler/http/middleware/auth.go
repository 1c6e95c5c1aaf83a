package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/jwt"
)

// AuthRequired turns the token verified by jwtauth.Verifier into an
// auth.Caller on the request context.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := jwt.CallerFromContext(r.Context())
		if err != nil {
			response.HandleError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
	})
}
