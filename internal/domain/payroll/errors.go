package payroll

import "errors"

var (
	ErrInvalidPayPeriod      = errors.New("pay period must be in YYYY-MM format")
	ErrInvalidPaymentStatus  = errors.New("status must be one of PENDING, PROCESSED, PAID, CANCELLED")
	ErrInvalidEntryRef       = errors.New("invalid payroll entry reference")
	ErrEntryNotFound         = errors.New("payroll entry not found")
	ErrEntryAlreadyExists    = errors.New("payroll entry already exists for this period")
	ErrNoActiveContract      = errors.New("employee has no active contract")
	ErrNoBaseSalary          = errors.New("employee has no base salary configured")
	ErrPeriodOutsideContract = errors.New("pay period is outside the employee's contract")
)
