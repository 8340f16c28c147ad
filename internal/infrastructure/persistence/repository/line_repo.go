package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
)

// LineItemRepository implements port.LineItemRepository on SQLite.
type LineItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLineItemRepository creates a new line item repository
func NewLineItemRepository(db *sql.DB, logger *zap.Logger) port.LineItemRepository {
	return &LineItemRepository{
		db:     db,
		logger: logger,
	}
}

const lineColumns = `
	id, report_id, entry_date, category, project_code, amount, status,
	created_at, updated_at
`

// Create inserts a new line item and backfills its generated ID.
func (r *LineItemRepository) Create(ctx context.Context, line *entity.LineItem) error {
	query := `
		INSERT INTO line_items (report_id, entry_date, category, project_code, amount, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		line.ReportID,
		line.EntryDate,
		line.Category,
		line.ProjectCode,
		line.Amount.String(),
		line.Status.String(),
	)
	if err != nil {
		r.logger.Error("Failed to create line item", zap.Error(err))
		return fmt.Errorf("failed to create line item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	line.ID = id
	return nil
}

// GetByID retrieves a line item by ID; a missing row returns (nil, nil).
func (r *LineItemRepository) GetByID(ctx context.Context, id int64) (*entity.LineItem, error) {
	query := `SELECT ` + lineColumns + ` FROM line_items WHERE id = ?`

	line, err := scanLine(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get line by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get line: %w", err)
	}
	return line, nil
}

// ListByReport retrieves all lines of a report in insertion order.
func (r *LineItemRepository) ListByReport(ctx context.Context, reportID int64) ([]*entity.LineItem, error) {
	query := `SELECT ` + lineColumns + ` FROM line_items WHERE report_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, reportID)
	if err != nil {
		r.logger.Error("Failed to list lines", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.LineItem
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Update writes all mutable line fields.
func (r *LineItemRepository) Update(ctx context.Context, line *entity.LineItem) error {
	query := `
		UPDATE line_items
		SET entry_date = ?, category = ?, project_code = ?, amount = ?,
			status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		line.EntryDate,
		line.Category,
		line.ProjectCode,
		line.Amount.String(),
		line.Status.String(),
		line.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update line", zap.Int64("id", line.ID), zap.Error(err))
		return fmt.Errorf("failed to update line: %w", err)
	}
	return nil
}

// Delete removes a line item.
func (r *LineItemRepository) Delete(ctx context.Context, id int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM line_items WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete line", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete line: %w", err)
	}
	return nil
}

// BulkSetStatus moves every listed line to newStatus in one statement.
func (r *LineItemRepository) BulkSetStatus(ctx context.Context, ids []int64, newStatus status.Status) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(
		`UPDATE line_items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id IN (%s)`,
		placeholders,
	)

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, newStatus.String())
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to bulk update line status",
			zap.Int("count", len(ids)), zap.String("status", newStatus.String()), zap.Error(err))
		return fmt.Errorf("failed to bulk update line status: %w", err)
	}
	return nil
}

func scanLine(row rowScanner) (*entity.LineItem, error) {
	var (
		line      entity.LineItem
		amount    string
		statusStr string
	)

	err := row.Scan(
		&line.ID,
		&line.ReportID,
		&line.EntryDate,
		&line.Category,
		&line.ProjectCode,
		&amount,
		&statusStr,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid line amount %q: %w", amount, err)
	}
	line.Amount = parsed
	line.Status = status.Status(statusStr)

	return &line, nil
}
