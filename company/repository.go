package company

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

// Create stores c under a free slug and makes its creator the first member.
func (r *repository) Create(ctx context.Context, c Company) (Company, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM companies WHERE id = $1 OR id LIKE $2`, c.ID, c.ID+"-%")
	if err != nil {
		return c, fmt.Errorf("querying taken slugs: %w", err)
	}
	var taken []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return c, err
		}
		taken = append(taken, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return c, err
	}
	c.ID = NextSlug(c.ID, taken)

	insertCompany := `INSERT INTO companies (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertCompany, c.ID, c.Name, c.CreatedBy, c.CreatedAt); err != nil {
		return c, fmt.Errorf("inserting company: %w", err)
	}

	insertMember := `INSERT INTO company_members (company_id, user_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertMember, c.ID, c.CreatedBy); err != nil {
		return c, fmt.Errorf("inserting company member: %w", err)
	}

	return c, tx.Commit()
}

func (r *repository) Get(ctx context.Context, id string) (*Company, error) {
	query := `SELECT id, name, created_by, created_at FROM companies WHERE id = $1`

	var c Company
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying company: %w", err)
	}
	return &c, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Company, error) {
	query := `SELECT c.id, c.name, c.created_by, c.created_at
              FROM companies c
              INNER JOIN company_members m ON c.id = m.company_id
              WHERE m.user_id = $1
              ORDER BY c.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *repository) IsMember(ctx context.Context, companyID string, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM company_members WHERE company_id = $1 AND user_id = $2)`

	var member bool
	if err := r.db.QueryRowContext(ctx, query, companyID, userID).Scan(&member); err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return member, nil
}

func (r *repository) AddMember(ctx context.Context, companyID string, userID uuid.UUID) error {
	query := `INSERT INTO company_members (company_id, user_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, companyID, userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAlreadyMember
		}
		return fmt.Errorf("inserting company member: %w", err)
	}
	return nil
}

// Delete removes the company; finance records go with it through
// ON DELETE CASCADE.
func (r *repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting company: %w", err)
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
