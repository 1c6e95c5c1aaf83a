package payroll

import (
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
)

const estimatedRefPrefix = "temp-"

// EntryRef addresses a ledger entry: a durable record by ID, or an estimate by
// its (employee, period) pair.
type EntryRef struct {
	Kind       EntryKind
	EntryID    string
	EmployeeID string
	PayPeriod  PayPeriod
}

func DurableRef(entryID string) EntryRef {
	return EntryRef{Kind: EntryKindDurable, EntryID: entryID}
}

func EstimatedRef(employeeID string, period PayPeriod) EntryRef {
	return EntryRef{Kind: EntryKindEstimated, EmployeeID: employeeID, PayPeriod: period}
}

// String encodes the ref for clients: the record ID, or temp-{employeeId}-{YYYY-MM}.
func (r EntryRef) String() string {
	if r.Kind == EntryKindDurable {
		return r.EntryID
	}
	return estimatedRefPrefix + r.EmployeeID + "-" + r.PayPeriod.String()
}

// ParseEntryRef decodes the output of EntryRef.String.
func ParseEntryRef(s string) (EntryRef, error) {
	s = strings.TrimSpace(s)

	if rest, ok := strings.CutPrefix(s, estimatedRefPrefix); ok {
		// The period is the fixed-width YYYY-MM suffix; employee IDs may contain dashes.
		const periodLen = len("2006-01")
		if len(rest) < periodLen+2 || rest[len(rest)-periodLen-1] != '-' {
			return EntryRef{}, fmt.Errorf("%w: %q", ErrInvalidEntryRef, s)
		}
		employeeID := rest[:len(rest)-periodLen-1]
		period, err := ParsePayPeriod(rest[len(rest)-periodLen:])
		if err != nil {
			return EntryRef{}, fmt.Errorf("%w: %q", ErrInvalidEntryRef, s)
		}
		if !validator.IsValidUUID(employeeID) {
			return EntryRef{}, fmt.Errorf("%w: %q", ErrInvalidEntryRef, s)
		}
		return EstimatedRef(employeeID, period), nil
	}

	if !validator.IsValidUUID(s) {
		return EntryRef{}, fmt.Errorf("%w: %q", ErrInvalidEntryRef, s)
	}
	return DurableRef(s), nil
}
