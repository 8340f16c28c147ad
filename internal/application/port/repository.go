package port

import (
	"context"

	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
)

// ReportRepository defines persistence operations for Report aggregates.
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id int64) (*entity.Report, error)
	ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Report, error)
	ListByManager(ctx context.Context, managerID int64, limit, offset int) ([]*entity.Report, error)

	// Update writes all mutable aggregate fields.
	Update(ctx context.Context, report *entity.Report) error

	// UpdateGuarded writes all mutable aggregate fields conditioned on the
	// row still carrying the expected status. A lost race returns a
	// conflict error and writes nothing.
	UpdateGuarded(ctx context.Context, report *entity.Report, expected status.Status) error
}

// LineItemRepository defines persistence operations for line items.
type LineItemRepository interface {
	Create(ctx context.Context, line *entity.LineItem) error
	GetByID(ctx context.Context, id int64) (*entity.LineItem, error)
	ListByReport(ctx context.Context, reportID int64) ([]*entity.LineItem, error)
	Update(ctx context.Context, line *entity.LineItem) error
	Delete(ctx context.Context, id int64) error

	// BulkSetStatus moves every listed line to newStatus in one statement.
	BulkSetStatus(ctx context.Context, ids []int64, newStatus status.Status) error
}

// EmployeeRepository defines lookups for resolved caller identities.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Employee, error)
	GetByToken(ctx context.Context, token string) (*entity.Employee, error)
}

// OutboxRepository defines persistence operations for notification outbox rows.
type OutboxRepository interface {
	Create(ctx context.Context, msg *entity.OutboxMessage) error
	ListPending(ctx context.Context, limit int) ([]*entity.OutboxMessage, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error
}

// TransactionManager runs a function inside one database transaction. Nested
// calls reuse the surrounding transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
