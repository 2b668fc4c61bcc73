package income

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const columns = `id, company_id, name, type, amount, currency, expected_date, paid_date, status,
                 group_id, installment_no, installment_count, remaining_installments, note, created_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

// Create inserts all incomes in one transaction, so a plan is stored whole
// or not at all.
func (r *repository) Create(ctx context.Context, incomes ...Income) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, i := range incomes {
		if err := insert(ctx, tx, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insert(ctx context.Context, tx *sql.Tx, i Income) error {
	query := `INSERT INTO incomes (` + columns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.ExecContext(ctx, query,
		i.ID, i.CompanyID, i.Name, i.Type, i.Amount, i.Currency, i.ExpectedDate, i.PaidDate, i.Status,
		nullUUID(i.GroupID), i.InstallmentNo, i.InstallmentCount, i.RemainingInstallments, i.Note, i.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting income: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Income, error) {
	var (
		i        Income
		paidDate sql.NullTime
		groupID  uuid.NullUUID
	)
	err := s.Scan(&i.ID, &i.CompanyID, &i.Name, &i.Type, &i.Amount, &i.Currency, &i.ExpectedDate, &paidDate, &i.Status,
		&groupID, &i.InstallmentNo, &i.InstallmentCount, &i.RemainingInstallments, &i.Note, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paidDate.Valid {
		i.PaidDate = &paidDate.Time
	}
	if groupID.Valid {
		i.GroupID = &groupID.UUID
	}
	return &i, nil
}

func (r *repository) Get(ctx context.Context, companyID string, id uuid.UUID) (*Income, error) {
	query := `SELECT ` + columns + ` FROM incomes WHERE company_id = $1 AND id = $2`

	i, err := scan(r.db.QueryRowContext(ctx, query, companyID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying income: %w", err)
	}
	return i, nil
}

func (r *repository) List(ctx context.Context, companyID string) ([]Income, error) {
	query := `SELECT ` + columns + ` FROM incomes WHERE company_id = $1 ORDER BY expected_date DESC`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying incomes: %w", err)
	}
	defer rows.Close()

	incomes := make([]Income, 0)
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, *i)
	}
	return incomes, rows.Err()
}

// Update rewrites the editable fields of an income that is not collected yet.
func (r *repository) Update(ctx context.Context, i Income) error {
	query := `UPDATE incomes SET name = $1, amount = $2, expected_date = $3, note = $4
              WHERE company_id = $5 AND id = $6 AND status <> 'collected'`

	res, err := r.db.ExecContext(ctx, query, i.Name, i.Amount, i.ExpectedDate, i.Note, i.CompanyID, i.ID)
	if err != nil {
		return fmt.Errorf("updating income: %w", err)
	}
	return r.affected(ctx, res, i.CompanyID, i.ID)
}

// affected turns a zero-row update into ErrNotFound or ErrAlreadyCollected.
func (r *repository) affected(ctx context.Context, res sql.Result, companyID string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, companyID, id); err != nil {
		return err
	}
	return ErrAlreadyCollected
}

func (r *repository) SetStatus(ctx context.Context, companyID string, id uuid.UUID, status Status, paidDate *time.Time) error {
	query := `UPDATE incomes SET status = $1, paid_date = $2 WHERE company_id = $3 AND id = $4`

	res, err := r.db.ExecContext(ctx, query, status, paidDate, companyID, id)
	if err != nil {
		return fmt.Errorf("updating income status: %w", err)
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

// CollectPartial records that paid arrived against an income. The income is
// locked, reduced and a collected record for the paid portion is inserted in
// the same transaction, so the two always add up to the original amount.
func (r *repository) CollectPartial(ctx context.Context, companyID string, id uuid.UUID, paid decimal.Decimal, paidDate time.Time) (*Income, *Income, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + columns + ` FROM incomes WHERE company_id = $1 AND id = $2 FOR UPDATE`
	current, err := scan(tx.QueryRowContext(ctx, query, companyID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("locking income: %w", err)
	}

	remaining, collected, err := SplitPartial(*current, paid, paidDate)
	if err != nil {
		return nil, nil, err
	}

	update := `UPDATE incomes SET amount = $1 WHERE company_id = $2 AND id = $3`
	if _, err := tx.ExecContext(ctx, update, remaining.Amount, companyID, id); err != nil {
		return nil, nil, fmt.Errorf("reducing income: %w", err)
	}
	if err := insert(ctx, tx, collected); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &remaining, &collected, nil
}

func (r *repository) Delete(ctx context.Context, companyID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("deleting income: %w", err)
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

// DeleteGroup removes every income of an installment plan or recurring
// service and reports how many went.
func (r *repository) DeleteGroup(ctx context.Context, companyID string, groupID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE company_id = $1 AND group_id = $2`, companyID, groupID)
	if err != nil {
		return 0, fmt.Errorf("deleting income group: %w", err)
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
