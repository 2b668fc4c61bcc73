package employee

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_CreateWritesEmployeeAndPayroll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e, salaries, err := Hire("acme", "Emre", "TRY", decimal.NewFromInt(35000), time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, salaries, 3)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO employees`).
		WithArgs(e.ID, "acme", "Emre", e.Salary, e.SalaryDate, e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for range salaries {
		mock.ExpectExec(`INSERT INTO expenses`).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, NewRepository(db).Create(context.Background(), e, salaries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateRollsBackWhenPayrollFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e, salaries, _ := Hire("acme", "Emre", "TRY", decimal.NewFromInt(35000), time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO employees`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO expenses`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	assert.ErrorIs(t, NewRepository(db).Create(context.Background(), e, salaries), assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateTouchesUnpaidSalaries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e, _, _ := Hire("acme", "Emre", "TRY", decimal.NewFromInt(40000), time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE employees SET name = \$1, salary = \$2`).
		WithArgs("Emre", e.Salary, "acme", e.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE expenses SET amount = \$1, name = \$2, subcategory = \$2\s+WHERE company_id = \$3 AND employee_id = \$4 AND NOT paid`).
		WithArgs(e.Salary, "Emre", "acme", e.ID).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectCommit()

	changed, err := NewRepository(db).Update(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, int64(7), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteKeepsPaidHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e, _, _ := Hire("acme", "Emre", "TRY", decimal.NewFromInt(40000), time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM expenses WHERE company_id = \$1 AND employee_id = \$2 AND NOT paid`).
		WithArgs("acme", e.ID).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM employees`).
		WithArgs("acme", e.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := NewRepository(db).Delete(context.Background(), "acme", e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM expenses`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM employees`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = NewRepository(db).Delete(context.Background(), "acme", e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
