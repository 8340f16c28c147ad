package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/entity"
)

// EmployeeRepository implements port.EmployeeRepository on SQLite.
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) port.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an employee by ID; a missing row returns (nil, nil).
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

// GetByToken resolves an API token to an employee; a missing row returns
// (nil, nil).
func (r *EmployeeRepository) GetByToken(ctx context.Context, token string) (*entity.Employee, error) {
	return r.get(ctx, `WHERE api_token = ?`, token)
}

func (r *EmployeeRepository) get(ctx context.Context, where string, arg interface{}) (*entity.Employee, error) {
	query := `
		SELECT id, name, email, role, manager_id, created_at
		FROM employees ` + where

	var (
		employee  entity.Employee
		managerID sql.NullInt64
	)
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.Role,
		&managerID,
		&employee.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	if managerID.Valid {
		employee.ManagerID = &managerID.Int64
	}
	return &employee, nil
}
