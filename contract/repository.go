package contract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c Contract) error {
	query := `INSERT INTO contracts (id, company_id, title, nda_key, contract_key, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.CompanyID, c.Title, c.NDAKey, c.ContractKey, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting contract: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Contract, error) {
	var (
		c                Contract
		nda, contractKey sql.NullString
	)
	if err := s.Scan(&c.ID, &c.CompanyID, &c.Title, &nda, &contractKey, &c.CreatedAt); err != nil {
		return nil, err
	}
	if nda.Valid {
		c.NDAKey = &nda.String
	}
	if contractKey.Valid {
		c.ContractKey = &contractKey.String
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, companyID string, id uuid.UUID) (*Contract, error) {
	query := `SELECT id, company_id, title, nda_key, contract_key, created_at
              FROM contracts WHERE company_id = $1 AND id = $2`

	c, err := scan(r.db.QueryRowContext(ctx, query, companyID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying contract: %w", err)
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, companyID string) ([]Contract, error) {
	query := `SELECT id, company_id, title, nda_key, contract_key, created_at
              FROM contracts WHERE company_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying contracts: %w", err)
	}
	defer rows.Close()

	contracts := make([]Contract, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

func (r *repository) Delete(ctx context.Context, companyID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("deleting contract: %w", err)
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
