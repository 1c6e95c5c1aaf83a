package reward

import (
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type PostBonusRequest struct {
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	PayPeriod  *string         `json:"pay_period,omitempty"`
	Note       *string         `json:"note,omitempty"`
}

func (r *PostBonusRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "must be a valid UUID"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be greater than zero"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be in YYYY-MM-DD format"})
	}
	if r.PayPeriod != nil && !validator.IsValidPayPeriod(*r.PayPeriod) {
		errs = append(errs, validator.ValidationError{Field: "pay_period", Message: "must be in YYYY-MM format"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RewardResponse struct {
	ID         string                       `json:"id"`
	EmployeeID string                       `json:"employee_id"`
	Amount     decimal.Decimal              `json:"amount"`
	Category   Category                     `json:"category"`
	PayPeriod  payroll.PayPeriod            `json:"pay_period"`
	Date       string                       `json:"date"`
	Note       *string                      `json:"note,omitempty"`
	Entry      *payroll.LedgerEntryResponse `json:"payroll_entry,omitempty"`
}
