package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/approvals/internal/domain/status"
)

// LineItem represents a single expense line or timesheet entry belonging to
// exactly one report. Amount holds either money or a duration in hours,
// depending on the report kind; both are exact decimals.
type LineItem struct {
	ID          int64           `json:"id"`
	ReportID    int64           `json:"report_id"`
	EntryDate   time.Time       `json:"entry_date"`
	Category    string          `json:"category"`
	ProjectCode string          `json:"project_code"`
	Amount      decimal.Decimal `json:"amount"`
	Status      status.Status   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Complete reports whether the line has everything it needs to leave draft:
// a date, a category, a project reference, and a positive amount.
func (l *LineItem) Complete() bool {
	return !l.EntryDate.IsZero() &&
		l.Category != "" &&
		l.ProjectCode != "" &&
		l.Amount.IsPositive()
}
