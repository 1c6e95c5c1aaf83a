package reward

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryBonus       Category = "BONUS"
	CategoryRecognition Category = "RECOGNITION"
)

// Reward - reward entry; only BONUS rewards take part in payroll
type Reward struct {
	ID            string
	CompanyID     string
	EmployeeID    string
	Amount        decimal.Decimal
	Category      Category
	PayPeriod     *payroll.PayPeriod // explicit target period, if tagged
	Date          time.Time
	Note          *string
	SourceEventID *string
	CreatedAt     time.Time
}

// Period is the explicit tag when present, else the month of Date.
func (r Reward) Period() payroll.PayPeriod {
	if r.PayPeriod != nil && !r.PayPeriod.IsZero() {
		return *r.PayPeriod
	}
	return payroll.PeriodOf(r.Date)
}

// BonusPostedEvent is the message consumed from the bonus topic.
type BonusPostedEvent struct {
	EventID    string          `json:"event_id"`
	CompanyID  string          `json:"company_id"`
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	PayPeriod  *string         `json:"pay_period,omitempty"`
	Note       *string         `json:"note,omitempty"`
}
