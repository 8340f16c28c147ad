package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/apperr"
	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
)

// NewLineInput carries the fields for creating or updating a line item.
type NewLineInput struct {
	EntryDate   time.Time
	Category    string
	ProjectCode string
	Amount      decimal.Decimal
}

// ReportService manages the report lifecycle outside the approval
// transitions: creating drafts and editing their lines. Lines are editable
// while draft or rejected; once submitted they belong to the reviewer.
type ReportService interface {
	CreateReport(ctx context.Context, caller *entity.Employee, title, periodLabel string) (*entity.Report, error)
	GetReport(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, []*entity.LineItem, error)
	ListReports(ctx context.Context, caller *entity.Employee, limit, offset int) ([]*entity.Report, error)
	AddLine(ctx context.Context, reportID int64, caller *entity.Employee, input NewLineInput) (*entity.LineItem, error)
	UpdateLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee, input NewLineInput) (*entity.LineItem, error)
	DeleteLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee) error
}

type reportServiceImpl struct {
	reports      port.ReportRepository
	lines        port.LineItemRepository
	employees    port.EmployeeRepository
	txManager    port.TransactionManager
	logger       Logger
	queryTimeout time.Duration
}

// NewReportService creates a new ReportService.
func NewReportService(
	reports port.ReportRepository,
	lines port.LineItemRepository,
	employees port.EmployeeRepository,
	txManager port.TransactionManager,
	logger Logger,
	queryTimeout time.Duration,
) ReportService {
	return &reportServiceImpl{
		reports:      reports,
		lines:        lines,
		employees:    employees,
		txManager:    txManager,
		logger:       logger,
		queryTimeout: queryTimeout,
	}
}

// CreateReport creates an empty draft owned by the caller.
func (s *reportServiceImpl) CreateReport(ctx context.Context, caller *entity.Employee, title, periodLabel string) (*entity.Report, error) {
	if caller == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.KindValidation, "title is required")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	report := &entity.Report{
		Reference:   uuid.NewString(),
		EmployeeID:  caller.ID,
		Title:       title,
		PeriodLabel: strings.TrimSpace(periodLabel),
		Status:      status.Draft,
		TotalAmount: decimal.Zero,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, classifyStoreErr(err, "create report")
	}

	s.logger.Info("Report created", "report_id", report.ID, "employee_id", caller.ID)
	return report, nil
}

// GetReport returns a report with its lines. Owners see their own reports;
// managers see the reports of employees they manage.
func (s *reportServiceImpl) GetReport(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, []*entity.LineItem, error) {
	if caller == nil {
		return nil, nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, nil, classifyStoreErr(err, "get report")
	}
	if report == nil {
		return nil, nil, apperr.New(apperr.KindNotFound, "report not found")
	}
	if err := s.authorizeRead(ctx, report, caller); err != nil {
		return nil, nil, err
	}

	lines, err := s.lines.ListByReport(ctx, reportID)
	if err != nil {
		return nil, nil, classifyStoreErr(err, "list report lines")
	}
	return report, lines, nil
}

// ListReports lists the caller's own reports, or for managers the reports of
// their direct reports.
func (s *reportServiceImpl) ListReports(ctx context.Context, caller *entity.Employee, limit, offset int) ([]*entity.Report, error) {
	if caller == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		reports []*entity.Report
		err     error
	)
	if caller.IsManager() {
		reports, err = s.reports.ListByManager(ctx, caller.ID, limit, offset)
	} else {
		reports, err = s.reports.ListByEmployee(ctx, caller.ID, limit, offset)
	}
	if err != nil {
		return nil, classifyStoreErr(err, "list reports")
	}
	return reports, nil
}

// AddLine appends a draft line to a report the caller owns.
func (s *reportServiceImpl) AddLine(ctx context.Context, reportID int64, caller *entity.Employee, input NewLineInput) (*entity.LineItem, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	report, err := s.ownedReport(ctx, reportID, caller)
	if err != nil {
		return nil, err
	}
	if err := validateLineInput(input); err != nil {
		return nil, err
	}

	line := &entity.LineItem{
		ReportID:    report.ID,
		EntryDate:   input.EntryDate,
		Category:    strings.TrimSpace(input.Category),
		ProjectCode: strings.TrimSpace(input.ProjectCode),
		Amount:      input.Amount,
		Status:      status.Draft,
	}
	if err := s.lines.Create(ctx, line); err != nil {
		return nil, classifyStoreErr(err, "create line")
	}

	s.logger.Info("Line added", "report_id", reportID, "line_id", line.ID)
	return line, nil
}

// UpdateLine edits a line that is still draft or rejected. Editing a
// rejected line resets it to draft so the next submit picks it up.
func (s *reportServiceImpl) UpdateLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee, input NewLineInput) (*entity.LineItem, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, line, err := s.ownedLine(ctx, reportID, lineID, caller)
	if err != nil {
		return nil, err
	}
	if line.Status != status.Draft && line.Status != status.Rejected {
		return nil, apperr.New(apperr.KindValidation, "only draft or rejected lines can be edited")
	}
	if err := validateLineInput(input); err != nil {
		return nil, err
	}

	line.EntryDate = input.EntryDate
	line.Category = strings.TrimSpace(input.Category)
	line.ProjectCode = strings.TrimSpace(input.ProjectCode)
	line.Amount = input.Amount
	line.Status = status.Draft
	if err := s.lines.Update(ctx, line); err != nil {
		return nil, classifyStoreErr(err, "update line")
	}

	s.logger.Info("Line updated", "report_id", reportID, "line_id", lineID)
	return line, nil
}

// DeleteLine removes a draft or rejected line from a report the caller owns.
func (s *reportServiceImpl) DeleteLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, line, err := s.ownedLine(ctx, reportID, lineID, caller)
	if err != nil {
		return err
	}
	if line.Status != status.Draft && line.Status != status.Rejected {
		return apperr.New(apperr.KindValidation, "only draft or rejected lines can be deleted")
	}

	if err := s.lines.Delete(ctx, line.ID); err != nil {
		return classifyStoreErr(err, "delete line")
	}

	s.logger.Info("Line deleted", "report_id", reportID, "line_id", lineID)
	return nil
}

func (s *reportServiceImpl) ownedReport(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, error) {
	if caller == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, classifyStoreErr(err, "get report")
	}
	if report == nil {
		return nil, apperr.New(apperr.KindNotFound, "report not found")
	}
	if report.EmployeeID != caller.ID {
		return nil, apperr.New(apperr.KindForbidden, "only the report owner can edit it")
	}
	return report, nil
}

func (s *reportServiceImpl) ownedLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee) (*entity.Report, *entity.LineItem, error) {
	report, err := s.ownedReport(ctx, reportID, caller)
	if err != nil {
		return nil, nil, err
	}
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return nil, nil, classifyStoreErr(err, "get line")
	}
	if line == nil || line.ReportID != report.ID {
		return nil, nil, apperr.New(apperr.KindNotFound, "line not found")
	}
	return report, line, nil
}

func (s *reportServiceImpl) authorizeRead(ctx context.Context, report *entity.Report, caller *entity.Employee) error {
	if report.EmployeeID == caller.ID {
		return nil
	}
	if caller.IsManager() {
		owner, err := s.employees.GetByID(ctx, report.EmployeeID)
		if err != nil {
			return classifyStoreErr(err, "get report owner")
		}
		if owner != nil && owner.ManagerID != nil && *owner.ManagerID == caller.ID {
			return nil
		}
	}
	return apperr.New(apperr.KindForbidden, "not allowed to view this report")
}

func (s *reportServiceImpl) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func validateLineInput(input NewLineInput) error {
	if input.EntryDate.IsZero() {
		return apperr.New(apperr.KindValidation, "entry date is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return apperr.New(apperr.KindValidation, "category is required")
	}
	if strings.TrimSpace(input.ProjectCode) == "" {
		return apperr.New(apperr.KindValidation, "project reference is required")
	}
	if !input.Amount.IsPositive() {
		return apperr.New(apperr.KindValidation, "amount must be positive")
	}
	return nil
}
