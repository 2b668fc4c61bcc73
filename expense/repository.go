package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const columns = `id, company_id, name, title, subcategory, type, amount, currency, due_date, paid_date, status, paid,
                 group_id, total_months, remaining_months, employee_id, note, created_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, expenses ...Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := InsertTx(ctx, tx, expenses...); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertTx writes expenses inside a transaction owned by the caller, so other
// packages can store expenses together with their own rows.
func InsertTx(ctx context.Context, tx *sql.Tx, expenses ...Expense) error {
	query := `INSERT INTO expenses (` + columns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	for _, e := range expenses {
		_, err := tx.ExecContext(ctx, query,
			e.ID, e.CompanyID, e.Name, e.Title, e.Subcategory, e.Type, e.Amount, e.Currency, e.DueDate, e.PaidDate, e.Status, e.Paid,
			nullUUID(e.GroupID), e.TotalMonths, e.RemainingMonths, nullUUID(e.EmployeeID), e.Note, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting expense: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Expense, error) {
	var (
		e          Expense
		paidDate   sql.NullTime
		groupID    uuid.NullUUID
		employeeID uuid.NullUUID
	)
	err := s.Scan(&e.ID, &e.CompanyID, &e.Name, &e.Title, &e.Subcategory, &e.Type, &e.Amount, &e.Currency, &e.DueDate, &paidDate, &e.Status, &e.Paid,
		&groupID, &e.TotalMonths, &e.RemainingMonths, &employeeID, &e.Note, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paidDate.Valid {
		e.PaidDate = &paidDate.Time
	}
	if groupID.Valid {
		e.GroupID = &groupID.UUID
	}
	if employeeID.Valid {
		e.EmployeeID = &employeeID.UUID
	}
	return &e, nil
}

func (r *repository) Get(ctx context.Context, companyID string, id uuid.UUID) (*Expense, error) {
	query := `SELECT ` + columns + ` FROM expenses WHERE company_id = $1 AND id = $2`

	e, err := scan(r.db.QueryRowContext(ctx, query, companyID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying expense: %w", err)
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, companyID string) ([]Expense, error) {
	query := `SELECT ` + columns + ` FROM expenses WHERE company_id = $1 ORDER BY due_date DESC`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]Expense, 0)
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (r *repository) Update(ctx context.Context, e Expense) error {
	query := `UPDATE expenses SET name = $1, title = $2, subcategory = $3, amount = $4, due_date = $5, note = $6
              WHERE company_id = $7 AND id = $8 AND NOT paid`

	res, err := r.db.ExecContext(ctx, query, e.Name, e.Title, e.Subcategory, e.Amount, e.DueDate, e.Note, e.CompanyID, e.ID)
	if err != nil {
		return fmt.Errorf("updating expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, e.CompanyID, e.ID); err != nil {
		return err
	}
	return ErrAlreadyPaid
}

// SetPaid marks the expense paid on paidDate, or unpaid when paidDate is nil.
func (r *repository) SetPaid(ctx context.Context, companyID string, id uuid.UUID, paidDate *time.Time) error {
	status, paid := StatusPending, false
	if paidDate != nil {
		status, paid = StatusPaid, true
	}

	query := `UPDATE expenses SET status = $1, paid = $2, paid_date = $3 WHERE company_id = $4 AND id = $5`
	res, err := r.db.ExecContext(ctx, query, status, paid, paidDate, companyID, id)
	if err != nil {
		return fmt.Errorf("updating expense payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PayPartial books a partial payment: the expense is locked and reduced, and
// a paid expense for the paid portion is inserted, in one transaction.
func (r *repository) PayPartial(ctx context.Context, companyID string, id uuid.UUID, paid decimal.Decimal, paidDate time.Time) (*Expense, *Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + columns + ` FROM expenses WHERE company_id = $1 AND id = $2 FOR UPDATE`
	current, err := scan(tx.QueryRowContext(ctx, query, companyID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("locking expense: %w", err)
	}

	remaining, settled, err := SplitPartial(*current, paid, paidDate)
	if err != nil {
		return nil, nil, err
	}

	update := `UPDATE expenses SET amount = $1 WHERE company_id = $2 AND id = $3`
	if _, err := tx.ExecContext(ctx, update, remaining.Amount, companyID, id); err != nil {
		return nil, nil, fmt.Errorf("reducing expense: %w", err)
	}
	if err := InsertTx(ctx, tx, settled); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &remaining, &settled, nil
}

func (r *repository) Delete(ctx context.Context, companyID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteGroup(ctx context.Context, companyID string, groupID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE company_id = $1 AND group_id = $2`, companyID, groupID)
	if err != nil {
		return 0, fmt.Errorf("deleting expense group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
