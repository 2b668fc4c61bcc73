package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists   = errors.New("email already exists")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrBlankPassword = errors.New("password can't be blank")
	ErrShortPassword = errors.New("password must be at least 8 characters")
)

const (
	minPasswordLength = 8
	uniqueViolation   = "23505"
)

var validate = validator.New()

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	if password == "" {
		return nil, ErrBlankPassword
	}
	if len(password) < minPasswordLength {
		return nil, ErrShortPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	_, err = r.db.ExecContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	return user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, COALESCE(name, ''), email, password_hash, created_at FROM users WHERE email = $1`
	return r.getOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, COALESCE(name, ''), email, password_hash, created_at FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// getOne returns nil, nil when no user matches.
func (r *repository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &user, nil
}

func (r *repository) UpdateName(ctx context.Context, userID uuid.UUID, name string) error {
	query := `UPDATE users SET name = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, strings.TrimSpace(name), userID)
	if err != nil {
		return fmt.Errorf("updating user name: %w", err)
	}
	return nil
}

func (r *repository) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
