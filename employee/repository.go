package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/billbatista/acasinha-finance/expense"
	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, e Employee, salaries []expense.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO employees (id, company_id, name, salary, salary_date, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, query, e.ID, e.CompanyID, e.Name, e.Salary, e.SalaryDate, e.CreatedAt); err != nil {
		return fmt.Errorf("inserting employee: %w", err)
	}
	if err := expense.InsertTx(ctx, tx, salaries...); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *repository) Get(ctx context.Context, companyID string, id uuid.UUID) (*Employee, error) {
	query := `SELECT id, company_id, name, salary, salary_date, created_at
              FROM employees WHERE company_id = $1 AND id = $2`

	var e Employee
	err := r.db.QueryRowContext(ctx, query, companyID, id).
		Scan(&e.ID, &e.CompanyID, &e.Name, &e.Salary, &e.SalaryDate, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying employee: %w", err)
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, companyID string) ([]Employee, error) {
	query := `SELECT id, company_id, name, salary, salary_date, created_at
              FROM employees WHERE company_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying employees: %w", err)
	}
	defer rows.Close()

	employees := make([]Employee, 0)
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Name, &e.Salary, &e.SalaryDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r *repository) Update(ctx context.Context, e Employee) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE employees SET name = $1, salary = $2 WHERE company_id = $3 AND id = $4`,
		e.Name, e.Salary, e.CompanyID, e.ID)
	if err != nil {
		return 0, fmt.Errorf("updating employee: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrNotFound
	}

	query := `UPDATE expenses SET amount = $1, name = $2, subcategory = $2
              WHERE company_id = $3 AND employee_id = $4 AND NOT paid`
	res, err = tx.ExecContext(ctx, query, e.Salary, e.Name, e.CompanyID, e.ID)
	if err != nil {
		return 0, fmt.Errorf("updating salary expenses: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return changed, tx.Commit()
}

func (r *repository) Delete(ctx context.Context, companyID string, id uuid.UUID) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE company_id = $1 AND employee_id = $2 AND NOT paid`, companyID, id)
	if err != nil {
		return 0, fmt.Errorf("deleting salary expenses: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM employees WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return 0, fmt.Errorf("deleting employee: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrNotFound
	}
	return removed, tx.Commit()
}
