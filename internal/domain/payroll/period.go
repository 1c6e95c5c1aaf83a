package payroll

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
)

const payPeriodLayout = "2006-01"

// PayPeriod is a calendar month. The zero value means "no period".
type PayPeriod struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the pay period containing t, in t's location.
func PeriodOf(t time.Time) PayPeriod {
	return PayPeriod{Year: t.Year(), Month: t.Month()}
}

// ParsePayPeriod parses a YYYY-MM key.
func ParsePayPeriod(s string) (PayPeriod, error) {
	if !validator.IsValidPayPeriod(s) {
		return PayPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPayPeriod, s)
	}
	t, err := time.Parse(payPeriodLayout, s)
	if err != nil {
		return PayPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPayPeriod, s)
	}
	return PeriodOf(t), nil
}

func (p PayPeriod) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p PayPeriod) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p PayPeriod) index() int {
	return p.Year*12 + int(p.Month) - 1
}

func periodFromIndex(i int) PayPeriod {
	return PayPeriod{Year: i / 12, Month: time.Month(i%12 + 1)}
}

// Compare returns -1, 0 or +1 ordering by (year, month).
func (p PayPeriod) Compare(o PayPeriod) int {
	switch a, b := p.index(), o.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (p PayPeriod) Before(o PayPeriod) bool { return p.Compare(o) < 0 }
func (p PayPeriod) After(o PayPeriod) bool  { return p.Compare(o) > 0 }

func (p PayPeriod) AddMonths(n int) PayPeriod {
	return periodFromIndex(p.index() + n)
}

func (p PayPeriod) Next() PayPeriod { return p.AddMonths(1) }
func (p PayPeriod) Prev() PayPeriod { return p.AddMonths(-1) }

// FirstDay returns midnight of the period's first day in loc.
func (p PayPeriod) FirstDay(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// PeriodsBetween lists every period from start to end inclusive, ascending.
// It returns nil when start is after end.
func PeriodsBetween(start, end PayPeriod) []PayPeriod {
	if start.After(end) {
		return nil
	}
	periods := make([]PayPeriod, 0, end.index()-start.index()+1)
	for p := start; !p.After(end); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

func (p PayPeriod) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

func (p *PayPeriod) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PayPeriod{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayPeriod, string(data))
	}
	parsed, err := ParsePayPeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value stores the period as its YYYY-MM text.
func (p PayPeriod) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.String(), nil
}

func (p *PayPeriod) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = PayPeriod{}
		return nil
	case string:
		parsed, err := ParsePayPeriod(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []byte:
		return p.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PayPeriod", src)
	}
}
