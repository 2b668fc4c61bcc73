package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c Category) error {
	query := `INSERT INTO categories (id, company_id, name, subcategories, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.CompanyID, c.Name, pq.Array(c.Subcategories), c.CreatedAt)
	return mapErr("inserting category", err)
}

func mapErr(action string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateName
	}
	return fmt.Errorf("%s: %w", action, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Category, error) {
	var c Category
	subs := pq.StringArray{}
	if err := s.Scan(&c.ID, &c.CompanyID, &c.Name, &subs, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Subcategories = []string(subs)
	if c.Subcategories == nil {
		c.Subcategories = []string{}
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, companyID string, id uuid.UUID) (*Category, error) {
	return r.get(ctx, r.db, `SELECT id, company_id, name, subcategories, created_at
              FROM categories WHERE company_id = $1 AND id = $2`, companyID, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) get(ctx context.Context, q queryer, query string, companyID string, id uuid.UUID) (*Category, error) {
	c, err := scan(q.QueryRowContext(ctx, query, companyID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, companyID string) ([]Category, error) {
	query := `SELECT id, company_id, name, subcategories, created_at
              FROM categories WHERE company_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *repository) Rename(ctx context.Context, companyID string, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = $1 WHERE company_id = $2 AND id = $3`, name, companyID, id)
	if err != nil {
		return mapErr("renaming category", err)
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

func (r *repository) AddSubcategory(ctx context.Context, companyID string, id uuid.UUID, name string) (*Category, error) {
	return r.modify(ctx, companyID, id, func(c *Category) error { return c.Add(name) })
}

func (r *repository) RemoveSubcategory(ctx context.Context, companyID string, id uuid.UUID, name string) (*Category, error) {
	return r.modify(ctx, companyID, id, func(c *Category) error { return c.Remove(name) })
}

// modify locks the category row, applies change and writes the resulting
// subcategory list back.
func (r *repository) modify(ctx context.Context, companyID string, id uuid.UUID, change func(*Category) error) (*Category, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := r.get(ctx, tx, `SELECT id, company_id, name, subcategories, created_at
              FROM categories WHERE company_id = $1 AND id = $2 FOR UPDATE`, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := change(c); err != nil {
		return nil, err
	}

	update := `UPDATE categories SET subcategories = $1 WHERE company_id = $2 AND id = $3`
	if _, err := tx.ExecContext(ctx, update, pq.Array(c.Subcategories), companyID, id); err != nil {
		return nil, fmt.Errorf("updating subcategories: %w", err)
	}
	return c, tx.Commit()
}

func (r *repository) Delete(ctx context.Context, companyID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
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

// Subcategories lets expenses validate their subcategory against the title
// they are filed under.
func (r *repository) Subcategories(ctx context.Context, companyID, title string) ([]string, bool, error) {
	query := `SELECT subcategories FROM categories
              WHERE company_id = $1 AND lower(name) = lower($2)
              ORDER BY name = $2 DESC LIMIT 1`

	subs := pq.StringArray{}
	err := r.db.QueryRowContext(ctx, query, companyID, title).Scan(&subs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying subcategories: %w", err)
	}
	return []string(subs), true, nil
}
