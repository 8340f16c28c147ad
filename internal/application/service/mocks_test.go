package service

import (
	"context"

	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
)

// Mock repositories

type mockReportRepo struct {
	createFunc         func(ctx context.Context, report *entity.Report) error
	getByIDFunc        func(ctx context.Context, id int64) (*entity.Report, error)
	listByEmployeeFunc func(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Report, error)
	listByManagerFunc  func(ctx context.Context, managerID int64, limit, offset int) ([]*entity.Report, error)
	updateFunc         func(ctx context.Context, report *entity.Report) error
	updateGuardedFunc  func(ctx context.Context, report *entity.Report, expected status.Status) error
}

func (m *mockReportRepo) Create(ctx context.Context, report *entity.Report) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, report)
	}
	report.ID = 1
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Report{ID: id, Status: status.Draft}, nil
}

func (m *mockReportRepo) ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Report, error) {
	if m.listByEmployeeFunc != nil {
		return m.listByEmployeeFunc(ctx, employeeID, limit, offset)
	}
	return []*entity.Report{}, nil
}

func (m *mockReportRepo) ListByManager(ctx context.Context, managerID int64, limit, offset int) ([]*entity.Report, error) {
	if m.listByManagerFunc != nil {
		return m.listByManagerFunc(ctx, managerID, limit, offset)
	}
	return []*entity.Report{}, nil
}

func (m *mockReportRepo) Update(ctx context.Context, report *entity.Report) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, report)
	}
	return nil
}

func (m *mockReportRepo) UpdateGuarded(ctx context.Context, report *entity.Report, expected status.Status) error {
	if m.updateGuardedFunc != nil {
		return m.updateGuardedFunc(ctx, report, expected)
	}
	return nil
}

type mockLineRepo struct {
	createFunc        func(ctx context.Context, line *entity.LineItem) error
	getByIDFunc       func(ctx context.Context, id int64) (*entity.LineItem, error)
	listByReportFunc  func(ctx context.Context, reportID int64) ([]*entity.LineItem, error)
	updateFunc        func(ctx context.Context, line *entity.LineItem) error
	deleteFunc        func(ctx context.Context, id int64) error
	bulkSetStatusFunc func(ctx context.Context, ids []int64, newStatus status.Status) error
}

func (m *mockLineRepo) Create(ctx context.Context, line *entity.LineItem) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, line)
	}
	line.ID = 1
	return nil
}

func (m *mockLineRepo) GetByID(ctx context.Context, id int64) (*entity.LineItem, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockLineRepo) ListByReport(ctx context.Context, reportID int64) ([]*entity.LineItem, error) {
	if m.listByReportFunc != nil {
		return m.listByReportFunc(ctx, reportID)
	}
	return []*entity.LineItem{}, nil
}

func (m *mockLineRepo) Update(ctx context.Context, line *entity.LineItem) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, line)
	}
	return nil
}

func (m *mockLineRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockLineRepo) BulkSetStatus(ctx context.Context, ids []int64, newStatus status.Status) error {
	if m.bulkSetStatusFunc != nil {
		return m.bulkSetStatusFunc(ctx, ids, newStatus)
	}
	return nil
}

type mockEmployeeRepo struct {
	getByIDFunc    func(ctx context.Context, id int64) (*entity.Employee, error)
	getByTokenFunc func(ctx context.Context, token string) (*entity.Employee, error)
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockEmployeeRepo) GetByToken(ctx context.Context, token string) (*entity.Employee, error) {
	if m.getByTokenFunc != nil {
		return m.getByTokenFunc(ctx, token)
	}
	return nil, nil
}

type mockOutboxRepo struct {
	createFunc      func(ctx context.Context, msg *entity.OutboxMessage) error
	listPendingFunc func(ctx context.Context, limit int) ([]*entity.OutboxMessage, error)
	markSentFunc    func(ctx context.Context, id int64) error
	markFailedFunc  func(ctx context.Context, id int64, attempts int, lastError string) error
}

func (m *mockOutboxRepo) Create(ctx context.Context, msg *entity.OutboxMessage) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, msg)
	}
	return nil
}

func (m *mockOutboxRepo) ListPending(ctx context.Context, limit int) ([]*entity.OutboxMessage, error) {
	if m.listPendingFunc != nil {
		return m.listPendingFunc(ctx, limit)
	}
	return []*entity.OutboxMessage{}, nil
}

func (m *mockOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	if m.markSentFunc != nil {
		return m.markSentFunc(ctx, id)
	}
	return nil
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error {
	if m.markFailedFunc != nil {
		return m.markFailedFunc(ctx, id, attempts, lastError)
	}
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
