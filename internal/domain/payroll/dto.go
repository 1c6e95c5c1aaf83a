package payroll

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== REQUEST DTOs ==========

type UpdateStatusRequest struct {
	EmployeeID string `json:"-"`
	PayPeriod  string `json:"pay_period"`
	Status     string `json:"status"`
}

// UnmarshalJSON accepts payPeriod as an alias of pay_period; pay_period wins
// when both are sent.
func (r *UpdateStatusRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateStatusRequest
	var body struct {
		plain
		PayPeriodAlias string `json:"payPeriod"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	*r = UpdateStatusRequest(body.plain)
	if r.PayPeriod == "" {
		r.PayPeriod = body.PayPeriodAlias
	}
	return nil
}

func (r *UpdateStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "must be a valid UUID"})
	}
	errs = append(errs, validatePayPeriod("pay_period", r.PayPeriod)...)
	errs = append(errs, validateStatus(r.Status)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateStatusByRefRequest struct {
	Ref    string `json:"-"`
	Status string `json:"status"`
}

func (r *UpdateStatusByRefRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, err := ParseEntryRef(r.Ref); err != nil {
		errs = append(errs, validator.ValidationError{Field: "entry_id", Message: "must be a payroll entry ID or an estimate reference"})
	}
	errs = append(errs, validateStatus(r.Status)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CreateEntryRequest struct {
	EmployeeID string          `json:"employee_id"`
	PayPeriod  string          `json:"pay_period"`
	Allowances decimal.Decimal `json:"allowances"`
	Deductions decimal.Decimal `json:"deductions"`
	Overtime   decimal.Decimal `json:"overtime"`
	Tax        decimal.Decimal `json:"tax"`
	Status     string          `json:"status"`
}

func (r *CreateEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "must be a valid UUID"})
	}
	errs = append(errs, validatePayPeriod("pay_period", r.PayPeriod)...)
	if r.Status != "" {
		errs = append(errs, validateStatus(r.Status)...)
	}
	for field, amount := range map[string]decimal.Decimal{
		"allowances": r.Allowances,
		"deductions": r.Deductions,
		"overtime":   r.Overtime,
		"tax":        r.Tax,
	} {
		if amount.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field, Message: "must be non-negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ListFilter - query parameters of the organization-wide listing
type ListFilter struct {
	EmployeeID *string
	PayPeriod  *string
	Search     *string
	Status     *string
}

func (f *ListFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.EmployeeID != nil && !validator.IsValidUUID(*f.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "must be a valid UUID"})
	}
	if f.PayPeriod != nil {
		errs = append(errs, validatePayPeriod("pay_period", *f.PayPeriod)...)
	}
	if f.Status != nil {
		errs = append(errs, validateStatus(*f.Status)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// StatsFilter narrows the completed totals to one period or one year.
// Period wins over Year/Month; Month requires Year.
type StatsFilter struct {
	Year   *int
	Month  *int
	Period *string
}

func (f *StatsFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Period != nil {
		errs = append(errs, validatePayPeriod("period", *f.Period)...)
	}
	if f.Year != nil && (*f.Year < 1900 || *f.Year > 9999) {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be a four-digit year"})
	}
	if f.Month != nil {
		if *f.Month < 1 || *f.Month > 12 {
			errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
		}
		if f.Year == nil && f.Period == nil {
			errs = append(errs, validator.ValidationError{Field: "month", Message: "requires year"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Scope resolves the filter into a period and/or year. Call after Validate.
func (f StatsFilter) Scope() (period PayPeriod, year int) {
	if f.Period != nil {
		p, _ := ParsePayPeriod(*f.Period)
		return p, 0
	}
	if f.Year != nil && f.Month != nil {
		return PayPeriod{Year: *f.Year, Month: time.Month(*f.Month)}, 0
	}
	if f.Year != nil {
		return PayPeriod{}, *f.Year
	}
	return PayPeriod{}, 0
}

// CacheKey identifies the filter in cache keys.
func (f StatsFilter) CacheKey() string {
	period, year := f.Scope()
	switch {
	case !period.IsZero():
		return "p" + period.String()
	case year != 0:
		return "y" + strconv.Itoa(year)
	default:
		return "all"
	}
}

func validatePayPeriod(field, value string) validator.ValidationErrors {
	if validator.IsEmpty(value) {
		return validator.ValidationErrors{{Field: field, Message: "is required"}}
	}
	if !validator.IsValidPayPeriod(value) {
		return validator.ValidationErrors{{Field: field, Message: "must be in YYYY-MM format"}}
	}
	return nil
}

func validateStatus(value string) validator.ValidationErrors {
	if validator.IsEmpty(value) {
		return validator.ValidationErrors{{Field: "status", Message: "is required"}}
	}
	if _, err := ParsePaymentStatus(value); err != nil {
		return validator.ValidationErrors{{Field: "status", Message: "must be one of PENDING, PROCESSED, PAID, CANCELLED"}}
	}
	return nil
}

// ========== RESPONSE DTOs ==========

type EmployeeSummary struct {
	ID              string `json:"id"`
	EmployeeCode    string `json:"employee_code"`
	FullName        string `json:"full_name"`
	LifecycleStatus string `json:"lifecycle_status"`
}

type ContractSummary struct {
	ID           string          `json:"id"`
	BaseSalary   decimal.Decimal `json:"base_salary"`
	StartDate    string          `json:"start_date"`
	EndDate      *string         `json:"end_date,omitempty"`
	IsIndefinite bool            `json:"is_indefinite"`
}

type LedgerEntryResponse struct {
	ID           string          `json:"id"`
	IsEstimated  bool            `json:"is_estimated"`
	HasRecord    bool            `json:"has_record"`
	EmployeeID   string          `json:"employee_id"`
	EmployeeName *string         `json:"employee_name,omitempty"`
	EmployeeCode *string         `json:"employee_code,omitempty"`
	PayPeriod    PayPeriod       `json:"pay_period"`
	BaseSalary   decimal.Decimal `json:"base_salary"`
	Allowances   decimal.Decimal `json:"allowances"`
	Deductions   decimal.Decimal `json:"deductions"`
	Overtime     decimal.Decimal `json:"overtime"`
	Bonuses      decimal.Decimal `json:"bonuses"`
	Tax          decimal.Decimal `json:"tax"`
	GrossPay     decimal.Decimal `json:"gross_pay"`
	NetPay       decimal.Decimal `json:"net_pay"`
	Status       PaymentStatus   `json:"status"`
	PaymentDate  *string         `json:"payment_date,omitempty"`
}

type LedgerResponse struct {
	Employee      EmployeeSummary       `json:"employee"`
	Contract      *ContractSummary      `json:"contract"`
	SalaryHistory []LedgerEntryResponse `json:"salary_history"`
	TotalPaid     decimal.Decimal       `json:"total_paid"`
	TotalPending  decimal.Decimal       `json:"total_pending"`
	Message       *string               `json:"message,omitempty"`
}

type ListEntriesResponse struct {
	Data        []LedgerEntryResponse `json:"data"`
	IsEstimated bool                  `json:"is_estimated"`
	TotalCount  int                   `json:"total_count"`
}

type PeriodTotals struct {
	Period PayPeriod       `json:"period"`
	Salary decimal.Decimal `json:"salary"`
	Bonus  decimal.Decimal `json:"bonus"`
	Net    decimal.Decimal `json:"net"`
	Count  int             `json:"count"`
}

type YearTotals struct {
	Year   int             `json:"year"`
	Salary decimal.Decimal `json:"salary"`
	Bonus  decimal.Decimal `json:"bonus"`
	Net    decimal.Decimal `json:"net"`
	Count  int             `json:"count"`
}

type StatsResponse struct {
	TotalPaidSalary decimal.Decimal `json:"total_paid_salary"`
	TotalPaidBonus  decimal.Decimal `json:"total_paid_bonus"`
	TotalPaidNet    decimal.Decimal `json:"total_paid_net"`
	CurrentMonth    PeriodTotals    `json:"current_month"`
	CurrentYear     YearTotals      `json:"current_year"`
	Monthly         []PeriodTotals  `json:"monthly"`
	Yearly          []YearTotals    `json:"yearly"`
	Scope           string          `json:"scope"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// NewLedgerEntryResponse maps a ledger entry to its wire form.
func NewLedgerEntryResponse(e LedgerEntry) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:          e.Ref().String(),
		IsEstimated: e.IsEstimated(),
		HasRecord:   e.Kind == EntryKindDurable,
		EmployeeID:  e.EmployeeID,
		PayPeriod:   e.PayPeriod,
		BaseSalary:  e.BaseSalary,
		Allowances:  e.Allowances,
		Deductions:  e.Deductions,
		Overtime:    e.Overtime,
		Bonuses:     e.Bonuses,
		Tax:         e.Tax,
		GrossPay:    e.GrossPay,
		NetPay:      e.NetPay,
		Status:      e.Status,
	}
	if e.PaymentDate != nil {
		d := e.PaymentDate.Format(time.RFC3339)
		resp.PaymentDate = &d
	}
	if e.Record != nil {
		resp.EmployeeName = e.Record.EmployeeName
		resp.EmployeeCode = e.Record.EmployeeCode
	}
	return resp
}
