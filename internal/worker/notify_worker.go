package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/entity"
)

// NotifyWorker drains the notification outbox: for each pending row it
// rebuilds the notification event from current report data, hands it to the
// dispatcher, and records the outcome. Delivery is best effort with bounded
// retries; exhausted messages stay in the table as failed for inspection.
type NotifyWorker struct {
	outbox    port.OutboxRepository
	reports   port.ReportRepository
	employees port.EmployeeRepository
	notifier  port.Notifier
	retry     *RetryStrategy
	interval  time.Duration
	batchSize int
	logger    *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifyWorker creates a new notification outbox worker.
func NewNotifyWorker(
	outbox port.OutboxRepository,
	reports port.ReportRepository,
	employees port.EmployeeRepository,
	notifier port.Notifier,
	retry *RetryStrategy,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *NotifyWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &NotifyWorker{
		outbox:    outbox,
		reports:   reports,
		employees: employees,
		notifier:  notifier,
		retry:     retry,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Name implements Worker.
func (w *NotifyWorker) Name() string {
	return "notify-worker"
}

// Start implements Worker.
func (w *NotifyWorker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.drain(ctx)
			}
		}
	}()

	return nil
}

// Stop implements Worker.
func (w *NotifyWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		<-w.done
	}
}

func (w *NotifyWorker) drain(ctx context.Context) {
	msgs, err := w.outbox.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Failed to list pending notifications", zap.Error(err))
		return
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, msg)
	}
}

func (w *NotifyWorker) process(ctx context.Context, msg *entity.OutboxMessage) {
	event, err := w.buildEvent(ctx, msg)
	if err != nil {
		// Unbuildable messages can never succeed; fail them immediately.
		w.logger.Error("Dropping undeliverable notification",
			zap.Int64("outbox_id", msg.ID), zap.Error(err))
		w.markFailed(ctx, msg, msg.Attempts, err)
		return
	}

	attempts := msg.Attempts
	var lastErr error
	for attempts < w.retry.MaxAttempts {
		attempts++
		lastErr = w.notifier.Notify(ctx, *event)
		if lastErr == nil {
			if err := w.outbox.MarkSent(ctx, msg.ID); err != nil {
				w.logger.Error("Failed to mark notification sent",
					zap.Int64("outbox_id", msg.ID), zap.Error(err))
			}
			return
		}

		w.logger.Error("Notification attempt failed",
			zap.Int64("outbox_id", msg.ID),
			zap.Int("attempt", attempts),
			zap.Error(lastErr))

		if attempts >= w.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry.CalculateBackoff(attempts)):
		}
	}

	w.markFailed(ctx, msg, attempts, lastErr)
}

func (w *NotifyWorker) markFailed(ctx context.Context, msg *entity.OutboxMessage, attempts int, cause error) {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	if err := w.outbox.MarkFailed(ctx, msg.ID, attempts, reason); err != nil {
		w.logger.Error("Failed to mark notification failed",
			zap.Int64("outbox_id", msg.ID), zap.Error(err))
	}
}

func (w *NotifyWorker) buildEvent(ctx context.Context, msg *entity.OutboxMessage) (*entity.NotificationEvent, error) {
	report, err := w.reports.GetByID(ctx, msg.ReportID)
	if err != nil {
		return nil, fmt.Errorf("load report %d: %w", msg.ReportID, err)
	}
	if report == nil {
		return nil, fmt.Errorf("report %d no longer exists", msg.ReportID)
	}

	owner, err := w.employees.GetByID(ctx, report.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load report owner: %w", err)
	}
	employeeName := ""
	if owner != nil {
		employeeName = owner.Name
	}

	event := &entity.NotificationEvent{
		Event:        msg.Event,
		ReportID:     report.ID,
		Reference:    report.Reference,
		EmployeeName: employeeName,
		ReportTitle:  report.Title,
		Period:       report.PeriodLabel,
		Recipient:    msg.Recipient,
	}
	if msg.Event == entity.EventRejected && report.RejectionReason != nil {
		event.Reason = *report.RejectionReason
	}
	return event, nil
}
