package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/apperr"
	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
)

// ReportRepository implements port.ReportRepository on SQLite.
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `
	id, reference, employee_id, title, period_label, status, total_amount,
	submitted_at, approved_at, approved_by, rejected_at, rejection_reason,
	created_at, updated_at
`

// Create inserts a new report and backfills its generated ID.
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (reference, employee_id, title, period_label, status, total_amount)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		report.Reference,
		report.EmployeeID,
		report.Title,
		report.PeriodLabel,
		report.Status.String(),
		report.TotalAmount.String(),
	)
	if err != nil {
		r.logger.Error("Failed to create report", zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	report.ID = id
	return nil
}

// GetByID retrieves a report by ID; a missing row returns (nil, nil).
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`

	report, err := scanReport(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// ListByEmployee retrieves an employee's reports, newest first.
func (r *ReportRepository) ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE employee_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, employeeID, limit, offset)
}

// ListByManager retrieves reports owned by an employee's direct reports.
func (r *ReportRepository) ListByManager(ctx context.Context, managerID int64, limit, offset int) ([]*entity.Report, error) {
	query := `
		SELECT r.id, r.reference, r.employee_id, r.title, r.period_label, r.status,
			r.total_amount, r.submitted_at, r.approved_at, r.approved_by,
			r.rejected_at, r.rejection_reason, r.created_at, r.updated_at
		FROM reports r
		JOIN employees e ON e.id = r.employee_id
		WHERE e.manager_id = ?
		ORDER BY r.created_at DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, managerID, limit, offset)
}

// Update writes all mutable aggregate fields.
func (r *ReportRepository) Update(ctx context.Context, report *entity.Report) error {
	_, err := r.update(ctx, report, "")
	return err
}

// UpdateGuarded writes all mutable aggregate fields only if the row still
// carries the expected status; a lost race reports a conflict.
func (r *ReportRepository) UpdateGuarded(ctx context.Context, report *entity.Report, expected status.Status) error {
	affected, err := r.update(ctx, report, expected)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.KindConflict, "report was modified concurrently")
	}
	return nil
}

func (r *ReportRepository) update(ctx context.Context, report *entity.Report, expected status.Status) (int64, error) {
	query := `
		UPDATE reports
		SET status = ?, total_amount = ?, submitted_at = ?, approved_at = ?,
			approved_by = ?, rejected_at = ?, rejection_reason = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	args := []interface{}{
		report.Status.String(),
		report.TotalAmount.String(),
		nullableTime(report.SubmittedAt),
		nullableTime(report.ApprovedAt),
		nullableInt(report.ApprovedBy),
		nullableTime(report.RejectedAt),
		nullableString(report.RejectionReason),
		report.ID,
	}
	if expected != "" {
		query += ` AND status = ?`
		args = append(args, expected.String())
	}

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update report", zap.Int64("id", report.ID), zap.Error(err))
		return 0, fmt.Errorf("failed to update report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

func (r *ReportRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Report, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var (
		report      entity.Report
		statusStr   string
		totalAmount string
		submittedAt sql.NullTime
		approvedAt  sql.NullTime
		approvedBy  sql.NullInt64
		rejectedAt  sql.NullTime
		rejection   sql.NullString
	)

	err := row.Scan(
		&report.ID,
		&report.Reference,
		&report.EmployeeID,
		&report.Title,
		&report.PeriodLabel,
		&statusStr,
		&totalAmount,
		&submittedAt,
		&approvedAt,
		&approvedBy,
		&rejectedAt,
		&rejection,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.Status = status.Status(statusStr)
	amount, err := decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid total amount %q: %w", totalAmount, err)
	}
	report.TotalAmount = amount

	if submittedAt.Valid {
		report.SubmittedAt = &submittedAt.Time
	}
	if approvedAt.Valid {
		report.ApprovedAt = &approvedAt.Time
	}
	if approvedBy.Valid {
		report.ApprovedBy = &approvedBy.Int64
	}
	if rejectedAt.Valid {
		report.RejectedAt = &rejectedAt.Time
	}
	if rejection.Valid {
		report.RejectionReason = &rejection.String
	}

	return &report, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
