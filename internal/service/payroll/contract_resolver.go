package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/contract"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ResolveTerms combines a contract with the employee's fallback base salary.
// A nil contract yields ErrNoActiveContract; no positive base yields ErrNoBaseSalary.
func ResolveTerms(emp employee.Employee, c *contract.Contract) (payroll.ContractTerms, error) {
	if c == nil {
		return payroll.ContractTerms{}, payroll.ErrNoActiveContract
	}

	base := decimal.Zero
	switch {
	case c.BaseSalary != nil && c.BaseSalary.IsPositive():
		base = *c.BaseSalary
	case emp.BaseSalary != nil && emp.BaseSalary.IsPositive():
		base = *emp.BaseSalary
	default:
		return payroll.ContractTerms{}, payroll.ErrNoBaseSalary
	}

	return payroll.ContractTerms{
		ContractID:   c.ID,
		EmployeeID:   emp.ID,
		BaseSalary:   base,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		IsIndefinite: c.IsIndefinite,
	}, nil
}

func (s *PayrollLedgerServiceImpl) resolveContract(ctx context.Context, emp employee.Employee) (payroll.ContractTerms, *contract.Contract, error) {
	c, err := s.contractRepo.GetActiveByEmployeeID(ctx, emp.CompanyID, emp.ID)
	if err != nil {
		if errors.Is(err, contract.ErrContractNotFound) {
			return payroll.ContractTerms{}, nil, payroll.ErrNoActiveContract
		}
		return payroll.ContractTerms{}, nil, fmt.Errorf("resolve contract: %w", err)
	}

	terms, err := ResolveTerms(emp, &c)
	if err != nil {
		return payroll.ContractTerms{}, &c, err
	}
	return terms, &c, nil
}

// resolveContracts returns terms for every employee that has payroll;
// employees without an active contract or base salary are left out.
func (s *PayrollLedgerServiceImpl) resolveContracts(ctx context.Context, companyID string, employees []employee.Employee) (map[string]payroll.ContractTerms, error) {
	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.ID)
	}

	contracts, err := s.contractRepo.GetActiveByEmployeeIDs(ctx, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve contracts: %w", err)
	}

	return termsByEmployee(employees, contracts), nil
}

func termsByEmployee(employees []employee.Employee, contracts map[string]contract.Contract) map[string]payroll.ContractTerms {
	terms := make(map[string]payroll.ContractTerms, len(contracts))
	for _, emp := range employees {
		c, ok := contracts[emp.ID]
		if !ok {
			continue
		}
		t, err := ResolveTerms(emp, &c)
		if err != nil {
			continue
		}
		terms[emp.ID] = t
	}
	return terms
}

// contractCovers reports whether period lies within the contract's own bounds.
func contractCovers(terms payroll.ContractTerms, period payroll.PayPeriod) bool {
	if period.Before(payroll.PeriodOf(terms.StartDate)) {
		return false
	}
	if !terms.IsIndefinite && terms.EndDate != nil && period.After(payroll.PeriodOf(*terms.EndDate)) {
		return false
	}
	return true
}
