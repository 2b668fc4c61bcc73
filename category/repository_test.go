package category

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnNames = []string{"id", "company_id", "name", "subcategories", "created_at"}

func TestRepository_CreateDuplicateName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c, _ := New("acme", "Ofis", []string{"Kira"})
	mock.ExpectExec(`INSERT INTO categories`).
		WithArgs(c.ID, "acme", "Ofis", pq.Array([]string{"Kira"}), c.CreatedAt).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	assert.ErrorIs(t, NewRepository(db).Create(context.Background(), c), ErrDuplicateName)
}

func TestRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM categories WHERE company_id = \$1`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(columnNames).
			AddRow(uuid.NewString(), "acme", "Ofis", `{Kira,"Elektrik ve Su"}`, now).
			AddRow(uuid.NewString(), "acme", "Vergi", `{}`, now))

	got, err := NewRepository(db).List(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Kira", "Elektrik ve Su"}, got[0].Subcategories)
	assert.Empty(t, got[1].Subcategories)
}

func TestRepository_AddSubcategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("acme", id).
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(id.String(), "acme", "Ofis", `{Kira}`, now))
	mock.ExpectExec(`UPDATE categories SET subcategories = \$1`).
		WithArgs(pq.Array([]string{"Kira", "Su"}), "acme", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, err := NewRepository(db).AddSubcategory(context.Background(), "acme", id, "Su")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kira", "Su"}, c.Subcategories)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("acme", id).
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(id.String(), "acme", "Ofis", `{Kira}`, now))
	mock.ExpectRollback()

	_, err = NewRepository(db).AddSubcategory(context.Background(), "acme", id, "kira")
	assert.ErrorIs(t, err, ErrDuplicateSubcategory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Subcategories(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT subcategories FROM categories`).
		WithArgs("acme", "Ofis").
		WillReturnRows(sqlmock.NewRows([]string{"subcategories"}).AddRow(`{Kira,Su}`))
	mock.ExpectQuery(`SELECT subcategories FROM categories`).
		WithArgs("acme", "Yok").
		WillReturnRows(sqlmock.NewRows([]string{"subcategories"}))

	repo := NewRepository(db)
	subs, ok, err := repo.Subcategories(context.Background(), "acme", "Ofis")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Kira", "Su"}, subs)

	_, ok, err = repo.Subcategories(context.Background(), "acme", "Yok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_SubcategoriesIgnoresTitleCase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`lower\(name\) = lower\(\$2\)`).
		WithArgs("acme", "ofis").
		WillReturnRows(sqlmock.NewRows([]string{"subcategories"}).AddRow(`{Kira,Su}`))

	subs, ok, err := NewRepository(db).Subcategories(context.Background(), "acme", "ofis")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Kira", "Su"}, subs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

