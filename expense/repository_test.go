package expense

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnNames = []string{
	"id", "company_id", "name", "title", "subcategory", "type", "amount", "currency", "due_date", "paid_date", "status", "paid",
	"group_id", "total_months", "remaining_months", "employee_id", "note", "created_at",
}

func optional(id *uuid.UUID) driver.Value {
	if id == nil {
		return nil
	}
	return id.String()
}

func row(e Expense) []driver.Value {
	var paid driver.Value
	if e.PaidDate != nil {
		paid = *e.PaidDate
	}
	return []driver.Value{
		e.ID.String(), e.CompanyID, e.Name, e.Title, e.Subcategory, string(e.Type), e.Amount.StringFixed(2), e.Currency, e.DueDate, paid, string(e.Status), e.Paid,
		optional(e.GroupID), int64(e.TotalMonths), int64(e.RemainingMonths), optional(e.EmployeeID), e.Note, e.CreatedAt,
	}
}

func TestRepository_CreateRecurring(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	plan, err := NewRecurring("acme", rent, d("100"), 3, day(2024, time.January, 1))
	require.NoError(t, err)

	mock.ExpectBegin()
	for _, e := range plan {
		mock.ExpectExec(`INSERT INTO expenses`).
			WithArgs(e.ID, "acme", e.Name, e.Title, "", TypeRecurring, e.Amount, "TRY", e.DueDate, nil, StatusPending, false,
				sqlmock.AnyArg(), 3, e.RemainingMonths, nil, "", e.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, NewRepository(db).Create(context.Background(), plan...))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetWithEmployee(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	employeeID := uuid.New()
	plan, _ := NewSalaries("acme", employeeID, "Can", "TRY", d("20000"), day(2024, time.December, 1))
	e := plan[0]
	e.MarkPaid(day(2024, time.December, 2))

	mock.ExpectQuery(`FROM expenses WHERE company_id = \$1 AND id = \$2`).
		WithArgs("acme", e.ID).
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(row(e)...))

	got, err := NewRepository(db).Get(context.Background(), "acme", e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmployeeID)
	assert.Equal(t, employeeID, *got.EmployeeID)
	assert.True(t, got.Paid)
	require.NotNil(t, got.PaidDate)
	assert.Equal(t, day(2024, time.December, 2), *got.PaidDate)
}

func TestRepository_SetPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	on := day(2024, time.March, 3)

	mock.ExpectExec(`UPDATE expenses SET status = \$1, paid = \$2, paid_date = \$3`).
		WithArgs(StatusPaid, true, on, "acme", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE expenses SET status`).
		WithArgs(StatusPending, false, nil, "acme", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE expenses SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRepository(db)
	require.NoError(t, repo.SetPaid(context.Background(), "acme", id, &on))
	require.NoError(t, repo.SetPaid(context.Background(), "acme", id, nil))
	assert.ErrorIs(t, repo.SetPaid(context.Background(), "acme", id, nil), ErrNotFound)
}

func TestRepository_PayPartialIsAtomic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e, _ := NewOneTime("acme", rent, d("15000"), day(2024, time.May, 5))

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("acme", e.ID).
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(row(e)...))
	mock.ExpectExec(`UPDATE expenses SET amount = \$1`).
		WithArgs(d("9000"), "acme", e.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO expenses`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err = NewRepository(db).PayPartial(context.Background(), "acme", e.ID, d("6000"), day(2024, time.May, 1))
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdatePaidExpense(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e, _ := NewOneTime("acme", rent, d("100"), day(2024, time.May, 5))
	e.MarkPaid(day(2024, time.May, 5))

	mock.ExpectExec(`UPDATE expenses SET name`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM expenses WHERE company_id`).
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(row(e)...))

	assert.ErrorIs(t, NewRepository(db).Update(context.Background(), e), ErrAlreadyPaid)
}
