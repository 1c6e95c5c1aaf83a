package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Ledger
	GetLedger(w http.ResponseWriter, r *http.Request)
	ListEntries(w http.ResponseWriter, r *http.Request)
	GetStats(w http.ResponseWriter, r *http.Request)

	// Mutations
	UpdateStatus(w http.ResponseWriter, r *http.Request)
	UpdateStatusByRef(w http.ResponseWriter, r *http.Request)
	CreateEntry(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollLedgerService
}

func NewPayrollHandler(payrollService payroll.PayrollLedgerService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== LEDGER ==========

func (h *payrollHandlerImpl) GetLedger(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeId")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	result, err := h.payrollService.GetLedger(r.Context(), employeeID, r.URL.Query().Get("order"))
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter := payroll.ListFilter{
		EmployeeID: queryParam(r, "employeeId", "employee_id"),
		PayPeriod:  queryParam(r, "payPeriod", "pay_period"),
		Search:     queryParam(r, "search"),
		Status:     queryParam(r, "status"),
	}

	result, err := h.payrollService.ListEntries(r.Context(), filter)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetStats(w http.ResponseWriter, r *http.Request) {
	var (
		filter payroll.StatsFilter
		errs   validator.ValidationErrors
	)

	if v := queryParam(r, "year"); v != nil {
		year, err := strconv.Atoi(*v)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: "year", Message: "must be a number"})
		}
		filter.Year = &year
	}
	if v := queryParam(r, "month"); v != nil {
		month, err := strconv.Atoi(*v)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: "month", Message: "must be a number"})
		}
		filter.Month = &month
	}
	filter.Period = queryParam(r, "period")

	if len(errs) > 0 {
		response.HandleError(w, r, errs)
		return
	}

	result, err := h.payrollService.GetStats(r.Context(), filter)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

// ========== MUTATIONS ==========

// UpdateStatus sets the status of the employee's entry for the body's pay
// period (pay_period or payPeriod), materializing the entry when needed.
// Besides validation and not-found errors it answers 400 BAD_REQUEST
// when no entry exists yet and the period falls outside the employee's contract.
func (h *payrollHandlerImpl) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = chi.URLParam(r, "employeeId")

	result, err := h.payrollService.UpdateStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

// UpdateStatusByRef accepts a durable entry ID or a temp-{employeeId}-{YYYY-MM} reference.
// A temp reference outside the employee's contract span is rejected with 400
// PERIOD_OUTSIDE_CONTRACT, as in UpdateStatus.
func (h *payrollHandlerImpl) UpdateStatusByRef(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdateStatusByRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.Ref = chi.URLParam(r, "entryId")

	result, err := h.payrollService.UpdateStatusByRef(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Created(w, "Payroll entry created", result)
}

// queryParam returns the first non-empty value among names, or nil.
func queryParam(r *http.Request, names ...string) *string {
	q := r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return &v
		}
	}
	return nil
}
