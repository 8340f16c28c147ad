package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/apperr"
	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
)

// Logger is the minimal logging dependency services need.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Finalize actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// TransitionService drives the report approval state machine: submitting a
// report, reviewing individual lines, and the final sign-off. All
// preconditions are checked against a fresh read of the store before any
// write, and every mutation runs inside one transaction with line updates
// ordered before the aggregate update.
type TransitionService interface {
	Submit(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, error)
	Finalize(ctx context.Context, reportID int64, caller *entity.Employee, action, reason string) (*entity.Report, error)
	ReviewLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee, decision string) (*entity.LineItem, error)
}

type transitionServiceImpl struct {
	reports      port.ReportRepository
	lines        port.LineItemRepository
	employees    port.EmployeeRepository
	outbox       port.OutboxRepository
	txManager    port.TransactionManager
	logger       Logger
	queryTimeout time.Duration
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(
	reports port.ReportRepository,
	lines port.LineItemRepository,
	employees port.EmployeeRepository,
	outbox port.OutboxRepository,
	txManager port.TransactionManager,
	logger Logger,
	queryTimeout time.Duration,
) TransitionService {
	return &transitionServiceImpl{
		reports:      reports,
		lines:        lines,
		employees:    employees,
		outbox:       outbox,
		txManager:    txManager,
		logger:       logger,
		queryTimeout: queryTimeout,
	}
}

// Submit moves a draft or resubmitted report into review. Every draft or
// rejected line becomes submitted; already approved lines keep their status.
// Prior terminal timestamps are cleared and the total is recomputed from the
// current lines.
func (s *transitionServiceImpl) Submit(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, error) {
	if caller == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.EmployeeID != caller.ID {
		return nil, apperr.New(apperr.KindForbidden, "only the report owner can submit it")
	}

	lines, err := s.lines.ListByReport(ctx, reportID)
	if err != nil {
		return nil, classifyStoreErr(err, "list report lines")
	}
	if len(lines) == 0 {
		return nil, apperr.New(apperr.KindValidation, "no lines to submit")
	}
	for i, line := range lines {
		if !line.Complete() {
			return nil, apperr.New(apperr.KindValidation,
				"line %d is incomplete: a date, category, project reference and positive amount are required", i+1)
		}
	}

	var toSubmit []int64
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
		if line.Status == status.Draft || line.Status == status.Rejected {
			toSubmit = append(toSubmit, line.ID)
		}
	}

	expected := report.Status
	now := time.Now()
	report.Status = status.Submitted
	report.SubmittedAt = &now
	report.ApprovedAt = nil
	report.ApprovedBy = nil
	report.RejectedAt = nil
	report.RejectionReason = nil
	report.TotalAmount = total

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Lines first, so a failed aggregate write can never leave the
		// aggregate claiming a status its lines do not support.
		if len(toSubmit) > 0 {
			if err := s.lines.BulkSetStatus(txCtx, toSubmit, status.Submitted); err != nil {
				return classifyStoreErr(err, "move lines to submitted")
			}
		}
		if err := s.reports.UpdateGuarded(txCtx, report, expected); err != nil {
			return classifyStoreErr(err, "update report")
		}
		return s.enqueueSubmittedNotification(txCtx, report)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Report submitted",
		"report_id", report.ID, "employee_id", caller.ID, "lines", len(lines))
	return report, nil
}

// Finalize is the reviewer's terminal sign-off on a report whose lines are
// all individually approved. It writes the aggregate status directly; the
// automatic line rollup deliberately stops at the line level here.
func (s *transitionServiceImpl) Finalize(ctx context.Context, reportID int64, caller *entity.Employee, action, reason string) (*entity.Report, error) {
	if caller == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}
	if action != ActionApprove && action != ActionReject {
		return nil, apperr.New(apperr.KindValidation, "action must be %q or %q", ActionApprove, ActionReject)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	lines, err := s.lines.ListByReport(ctx, reportID)
	if err != nil {
		return nil, classifyStoreErr(err, "list report lines")
	}
	for _, line := range lines {
		if line.Status != status.Approved {
			return nil, apperr.New(apperr.KindValidation, "all entries must be approved before finalizing")
		}
	}

	expected := report.Status
	now := time.Now()
	event := entity.EventApproved
	if action == ActionApprove {
		report.Status = status.Approved
		report.ApprovedAt = &now
		report.ApprovedBy = &caller.ID
	} else {
		event = entity.EventRejected
		report.Status = status.Rejected
		report.RejectedAt = &now
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			report.RejectionReason = &trimmed
		} else {
			report.RejectionReason = nil
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reports.UpdateGuarded(txCtx, report, expected); err != nil {
			return classifyStoreErr(err, "finalize report")
		}
		return s.enqueueOwnerNotification(txCtx, report, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Report finalized",
		"report_id", report.ID, "action", action, "reviewer_id", caller.ID)
	return report, nil
}

// ReviewLine records a manager's decision on one submitted line, then rolls
// the line statuses back up into the aggregate status. The rollup changes
// the status only; terminal timestamps stay with submit and finalize.
func (s *transitionServiceImpl) ReviewLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee, decision string) (*entity.LineItem, error) {
	if caller == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}
	if !caller.IsManager() {
		return nil, apperr.New(apperr.KindForbidden, "only managers can review lines")
	}
	if decision != ActionApprove && decision != ActionReject {
		return nil, apperr.New(apperr.KindValidation, "decision must be %q or %q", ActionApprove, ActionReject)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return nil, classifyStoreErr(err, "get line")
	}
	if line == nil || line.ReportID != report.ID {
		return nil, apperr.New(apperr.KindNotFound, "line not found")
	}
	if line.Status != status.Submitted {
		return nil, apperr.New(apperr.KindValidation, "only submitted lines can be reviewed")
	}

	if decision == ActionApprove {
		line.Status = status.Approved
	} else {
		line.Status = status.Rejected
	}

	expected := report.Status
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.lines.Update(txCtx, line); err != nil {
			return classifyStoreErr(err, "update line status")
		}

		lines, err := s.lines.ListByReport(txCtx, reportID)
		if err != nil {
			return classifyStoreErr(err, "list report lines")
		}
		statuses := make([]status.Status, len(lines))
		for i, l := range lines {
			statuses[i] = l.Status
		}

		derived := status.Derive(statuses)
		if derived == report.Status {
			return nil
		}
		report.Status = derived
		if err := s.reports.UpdateGuarded(txCtx, report, expected); err != nil {
			return classifyStoreErr(err, "update report status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Line reviewed",
		"report_id", reportID, "line_id", lineID, "decision", decision, "report_status", report.Status)
	return line, nil
}

func (s *transitionServiceImpl) enqueueSubmittedNotification(ctx context.Context, report *entity.Report) error {
	owner, err := s.employees.GetByID(ctx, report.EmployeeID)
	if err != nil {
		return classifyStoreErr(err, "get report owner")
	}
	if owner == nil || owner.ManagerID == nil {
		s.logger.Info("No manager to notify", "report_id", report.ID)
		return nil
	}
	manager, err := s.employees.GetByID(ctx, *owner.ManagerID)
	if err != nil {
		return classifyStoreErr(err, "get manager")
	}
	if manager == nil || manager.Email == "" {
		s.logger.Info("Manager has no email, skipping notification", "report_id", report.ID)
		return nil
	}
	return s.enqueue(ctx, report.ID, entity.EventSubmitted, manager.Email)
}

func (s *transitionServiceImpl) enqueueOwnerNotification(ctx context.Context, report *entity.Report, event string) error {
	owner, err := s.employees.GetByID(ctx, report.EmployeeID)
	if err != nil {
		return classifyStoreErr(err, "get report owner")
	}
	if owner == nil || owner.Email == "" {
		s.logger.Info("Owner has no email, skipping notification", "report_id", report.ID)
		return nil
	}
	return s.enqueue(ctx, report.ID, event, owner.Email)
}

func (s *transitionServiceImpl) enqueue(ctx context.Context, reportID int64, event, recipient string) error {
	msg := &entity.OutboxMessage{
		ReportID:  reportID,
		Event:     event,
		Recipient: recipient,
		Status:    entity.OutboxPending,
	}
	if err := s.outbox.Create(ctx, msg); err != nil {
		return classifyStoreErr(err, "enqueue notification")
	}
	return nil
}

func (s *transitionServiceImpl) loadReport(ctx context.Context, reportID int64) (*entity.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, classifyStoreErr(err, "get report")
	}
	if report == nil {
		return nil, apperr.New(apperr.KindNotFound, "report not found")
	}
	return report, nil
}

func (s *transitionServiceImpl) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// classifyStoreErr maps a raw store failure onto the error taxonomy, keeping
// an already classified error (such as a guarded-update conflict) as is.
func classifyStoreErr(err error, op string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, err, "store call exceeded deadline")
	}
	return apperr.Wrap(apperr.KindStore, err, op+" failed")
}
