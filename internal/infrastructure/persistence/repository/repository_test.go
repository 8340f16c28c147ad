package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/domain/apperr"
	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
	"github.com/tallyhq/approvals/internal/infrastructure/persistence/sqlite"
	"github.com/tallyhq/approvals/pkg/database"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../../../migrations"))

	return db
}

func seedEmployees(t *testing.T, db *database.DB) (managerID, employeeID int64) {
	t.Helper()

	res, err := db.Exec(
		`INSERT INTO employees (name, email, role, api_token) VALUES (?, ?, ?, ?)`,
		"Bob", "bob@example.com", entity.RoleManager, "bob-token")
	require.NoError(t, err)
	managerID, err = res.LastInsertId()
	require.NoError(t, err)

	res, err = db.Exec(
		`INSERT INTO employees (name, email, role, manager_id, api_token) VALUES (?, ?, ?, ?, ?)`,
		"Alice", "alice@example.com", entity.RoleEmployee, managerID, "alice-token")
	require.NoError(t, err)
	employeeID, err = res.LastInsertId()
	require.NoError(t, err)

	return managerID, employeeID
}

func draftReport(employeeID int64, reference string) *entity.Report {
	return &entity.Report{
		Reference:   reference,
		EmployeeID:  employeeID,
		Title:       "March expenses",
		PeriodLabel: "2026-03",
		Status:      status.Draft,
		TotalAmount: decimal.Zero,
	}
}

func TestEmployeeRepository(t *testing.T) {
	db := setupDB(t)
	managerID, employeeID := seedEmployees(t, db)
	repo := NewEmployeeRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	alice, err := repo.GetByID(ctx, employeeID)
	require.NoError(t, err)
	require.NotNil(t, alice)
	assert.Equal(t, "Alice", alice.Name)
	require.NotNil(t, alice.ManagerID)
	assert.Equal(t, managerID, *alice.ManagerID)
	assert.False(t, alice.IsManager())

	bob, err := repo.GetByToken(ctx, "bob-token")
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.True(t, bob.IsManager())
	assert.Nil(t, bob.ManagerID)

	missing, err := repo.GetByToken(ctx, "nobody-token")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReportRepository_RoundTrip(t *testing.T) {
	db := setupDB(t)
	managerID, employeeID := seedEmployees(t, db)
	repo := NewReportRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	report := draftReport(employeeID, "ref-001")
	require.NoError(t, repo.Create(ctx, report))
	assert.NotZero(t, report.ID)

	loaded, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "ref-001", loaded.Reference)
	assert.Equal(t, status.Draft, loaded.Status)
	assert.True(t, loaded.TotalAmount.IsZero())
	assert.Nil(t, loaded.SubmittedAt)

	now := time.Now().UTC().Truncate(time.Second)
	loaded.Status = status.Submitted
	loaded.SubmittedAt = &now
	loaded.TotalAmount = decimal.RequireFromString("15.75")
	require.NoError(t, repo.Update(ctx, loaded))

	reloaded, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Submitted, reloaded.Status)
	require.NotNil(t, reloaded.SubmittedAt)
	assert.Equal(t, "15.75", reloaded.TotalAmount.String())

	t.Run("lists by employee and by manager", func(t *testing.T) {
		byEmployee, err := repo.ListByEmployee(ctx, employeeID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, byEmployee, 1)

		byManager, err := repo.ListByManager(ctx, managerID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, byManager, 1)
		assert.Equal(t, report.ID, byManager[0].ID)

		none, err := repo.ListByManager(ctx, employeeID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("missing report is nil", func(t *testing.T) {
		missing, err := repo.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestReportRepository_UpdateGuarded(t *testing.T) {
	db := setupDB(t)
	_, employeeID := seedEmployees(t, db)
	repo := NewReportRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	report := draftReport(employeeID, "ref-002")
	require.NoError(t, repo.Create(ctx, report))

	report.Status = status.Submitted
	require.NoError(t, repo.UpdateGuarded(ctx, report, status.Draft))

	// The row is now submitted, so guarding on draft must conflict.
	report.Status = status.Approved
	err := repo.UpdateGuarded(ctx, report, status.Draft)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	loaded, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Submitted, loaded.Status)
}

func TestLineItemRepository(t *testing.T) {
	db := setupDB(t)
	_, employeeID := seedEmployees(t, db)
	reports := NewReportRepository(db.DB, zap.NewNop())
	repo := NewLineItemRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	report := draftReport(employeeID, "ref-003")
	require.NoError(t, reports.Create(ctx, report))

	first := &entity.LineItem{
		ReportID:    report.ID,
		EntryDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Category:    "travel",
		ProjectCode: "PRJ-7",
		Amount:      decimal.RequireFromString("10.50"),
		Status:      status.Draft,
	}
	second := &entity.LineItem{
		ReportID:    report.ID,
		EntryDate:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Category:    "meals",
		ProjectCode: "PRJ-7",
		Amount:      decimal.RequireFromString("4.25"),
		Status:      status.Draft,
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	lines, err := repo.ListByReport(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "10.5", lines[0].Amount.String())

	require.NoError(t, repo.BulkSetStatus(ctx, []int64{first.ID, second.ID}, status.Submitted))
	lines, err = repo.ListByReport(ctx, report.ID)
	require.NoError(t, err)
	for _, line := range lines {
		assert.Equal(t, status.Submitted, line.Status)
	}

	lines[0].Status = status.Approved
	require.NoError(t, repo.Update(ctx, lines[0]))
	updated, err := repo.GetByID(ctx, lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, status.Approved, updated.Status)

	require.NoError(t, repo.Delete(ctx, second.ID))
	lines, err = repo.ListByReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestOutboxRepository(t *testing.T) {
	db := setupDB(t)
	_, employeeID := seedEmployees(t, db)
	reports := NewReportRepository(db.DB, zap.NewNop())
	repo := NewOutboxRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	report := draftReport(employeeID, "ref-004")
	require.NoError(t, reports.Create(ctx, report))

	msg := &entity.OutboxMessage{
		ReportID:  report.ID,
		Event:     entity.EventSubmitted,
		Recipient: "bob@example.com",
	}
	require.NoError(t, repo.Create(ctx, msg))
	assert.NotZero(t, msg.ID)

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.OutboxPending, pending[0].Status)

	require.NoError(t, repo.MarkSent(ctx, msg.ID))
	pending, err = repo.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	failed := &entity.OutboxMessage{
		ReportID:  report.ID,
		Event:     entity.EventRejected,
		Recipient: "alice@example.com",
	}
	require.NoError(t, repo.Create(ctx, failed))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID, 3, "smtp unreachable"))

	pending, err = repo.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db := setupDB(t)
	_, employeeID := seedEmployees(t, db)
	reports := NewReportRepository(db.DB, zap.NewNop())
	txManager := sqlite.NewDB(db.DB, zap.NewNop())
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := reports.Create(txCtx, draftReport(employeeID, "ref-005")); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	listed, err := reports.ListByEmployee(ctx, employeeID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestTransactionManager_CommitsAndNests(t *testing.T) {
	db := setupDB(t)
	_, employeeID := seedEmployees(t, db)
	reports := NewReportRepository(db.DB, zap.NewNop())
	lines := NewLineItemRepository(db.DB, zap.NewNop())
	txManager := sqlite.NewDB(db.DB, zap.NewNop())
	ctx := context.Background()

	report := draftReport(employeeID, "ref-006")
	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := reports.Create(txCtx, report); err != nil {
			return err
		}
		// A nested call joins the surrounding transaction.
		return txManager.WithTransaction(txCtx, func(innerCtx context.Context) error {
			return lines.Create(innerCtx, &entity.LineItem{
				ReportID:    report.ID,
				EntryDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				Category:    "travel",
				ProjectCode: "PRJ-7",
				Amount:      decimal.RequireFromString("10.50"),
				Status:      status.Draft,
			})
		})
	})
	require.NoError(t, err)

	stored, err := lines.ListByReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
