package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/entity"
)

// OutboxRepository implements port.OutboxRepository on SQLite.
type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOutboxRepository creates a new notification outbox repository
func NewOutboxRepository(db *sql.DB, logger *zap.Logger) port.OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a pending outbox message.
func (r *OutboxRepository) Create(ctx context.Context, msg *entity.OutboxMessage) error {
	query := `
		INSERT INTO notification_outbox (report_id, event, recipient, status)
		VALUES (?, ?, ?, ?)
	`

	if msg.Status == "" {
		msg.Status = entity.OutboxPending
	}
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		msg.ReportID,
		msg.Event,
		msg.Recipient,
		msg.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create outbox message", zap.Error(err))
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListPending retrieves pending messages oldest first.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]*entity.OutboxMessage, error) {
	query := `
		SELECT id, report_id, event, recipient, status, attempts, last_error, created_at, sent_at
		FROM notification_outbox
		WHERE status = ?
		ORDER BY created_at
		LIMIT ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, entity.OutboxPending, limit)
	if err != nil {
		r.logger.Error("Failed to list pending notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var msgs []*entity.OutboxMessage
	for rows.Next() {
		var (
			msg       entity.OutboxMessage
			lastError sql.NullString
			sentAt    sql.NullTime
		)
		err := rows.Scan(
			&msg.ID,
			&msg.ReportID,
			&msg.Event,
			&msg.Recipient,
			&msg.Status,
			&msg.Attempts,
			&lastError,
			&msg.CreatedAt,
			&sentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		if lastError.Valid {
			msg.LastError = lastError.String
		}
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// MarkSent records a successful delivery.
func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE notification_outbox
		SET status = ?, sent_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, entity.OutboxSent, id)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure after retries were exhausted.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error {
	query := `
		UPDATE notification_outbox
		SET status = ?, attempts = ?, last_error = ?
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, entity.OutboxFailed, attempts, lastError, id)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}
