package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/approvals/internal/domain/status"
)

// Report represents an expense report or timesheet owned by one employee.
// Its status is denormalized from its line items; only the transition
// operations may change it.
type Report struct {
	ID              int64           `json:"id"`
	Reference       string          `json:"reference"` // uuid used in deep links and exports
	EmployeeID      int64           `json:"employee_id"`
	Title           string          `json:"title"`
	PeriodLabel     string          `json:"period_label"`
	Status          status.Status   `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy      *int64          `json:"approved_by,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
