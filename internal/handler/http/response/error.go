package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/contract"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors carry no detail beyond the status text
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrCompanyRequired):
		Unauthorized(w, "Unauthorized")
	case errors.Is(err, auth.ErrForbidden),
		errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Forbidden")

	// Not found
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, contract.ErrContractNotFound),
		errors.Is(err, payroll.ErrNoActiveContract):
		NotFound(w, "Employee has no active contract")
	case errors.Is(err, payroll.ErrNoBaseSalary):
		NotFound(w, "Employee has no base salary configured")
	case errors.Is(err, payroll.ErrEntryNotFound):
		NotFound(w, "Payroll entry not found")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrInvalidPayPeriod):
		BadRequest(w, "Pay period must be in YYYY-MM format", nil)
	case errors.Is(err, payroll.ErrInvalidPaymentStatus):
		BadRequest(w, "Status must be one of PENDING, PROCESSED, PAID, CANCELLED", nil)
	case errors.Is(err, payroll.ErrInvalidEntryRef):
		BadRequest(w, "Invalid payroll entry reference", nil)
	case errors.Is(err, payroll.ErrPeriodOutsideContract):
		BadRequest(w, "Pay period is outside the employee's contract", nil)
	case errors.Is(err, payroll.ErrEntryAlreadyExists):
		Conflict(w, "Payroll entry already exists for this period")

	// Reward domain errors
	case errors.Is(err, reward.ErrInvalidEvent):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, reward.ErrDuplicateEvent):
		Conflict(w, "Bonus event already processed")

	// Default
	default:
		attrs := []any{slog.Any("error", err)}
		if r != nil {
			attrs = append(attrs, slog.String("method", r.Method), slog.String("path", r.URL.Path))
		}
		slog.Error("unhandled request error", attrs...)
		InternalServerError(w, "An unexpected error occurred")
	}
}
