package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeDirectoryImpl struct {
	db *database.DB
}

func NewEmployeeDirectory(db *database.DB) employee.Directory {
	return &employeeDirectoryImpl{db: db}
}

const employeeSelect = `
	SELECT e.user_id, e.employee_code, e.full_name, e.username,
		   e.department_id, d.name AS department_name, e.is_active
	FROM employees e
	LEFT JOIN departments d ON e.department_id = d.id
`

// GetByIDs implements employee.Directory.
func (r *employeeDirectoryImpl) GetByIDs(ctx context.Context, userIDs []string) (map[string]employee.Employee, error) {
	result := make(map[string]employee.Employee, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	q := GetQuerier(ctx, r.db)

	query := employeeSelect + `
		WHERE e.user_id = ANY($1) AND e.deleted_at IS NULL
	`

	rows, err := q.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query employees: %w", employee.ErrDirectoryFailure, err)
	}

	employees, err := scanEmployees(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range employees {
		result[e.UserID] = e
	}
	return result, nil
}

// ListByDepartment implements employee.Directory.
func (r *employeeDirectoryImpl) ListByDepartment(ctx context.Context, departmentID string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := employeeSelect + `
		WHERE e.department_id = $1 AND e.is_active = TRUE AND e.deleted_at IS NULL
		ORDER BY e.full_name ASC, e.user_id ASC
	`

	rows, err := q.Query(ctx, query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list department employees: %w", employee.ErrDirectoryFailure, err)
	}
	return scanEmployees(rows)
}

// ListActive implements employee.Directory.
func (r *employeeDirectoryImpl) ListActive(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := employeeSelect + `
		WHERE e.is_active = TRUE AND e.deleted_at IS NULL
		ORDER BY e.full_name ASC, e.user_id ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list active employees: %w", employee.ErrDirectoryFailure, err)
	}
	return scanEmployees(rows)
}

func scanEmployees(rows pgx.Rows) ([]employee.Employee, error) {
	defer rows.Close()

	employees := []employee.Employee{}
	for rows.Next() {
		var e employee.Employee
		if err := rows.Scan(
			&e.UserID, &e.EmployeeCode, &e.FullName, &e.Username,
			&e.DepartmentID, &e.DepartmentName, &e.IsActive,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan employee: %w", employee.ErrDirectoryFailure, err)
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating employees: %w", employee.ErrDirectoryFailure, err)
	}

	return employees, nil
}
