package eventlogger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlEventLogger_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := NewEvent(WithType("income.collected"), WithActor(uuid.New(), "acme"))

	mock.ExpectExec(`INSERT INTO events`).
		WithArgs(e.ID, "income.collected", sqlmock.AnyArg(), sqlmock.AnyArg(), e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewSqlEventLogger(db).Save(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlEventLogger_GetByCompany(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "event_type", "event_data", "event_metadata", "created_at"}).
		AddRow(id.String(), "expense.paid", []byte(`{"amount":"100.00"}`), []byte(`{"company_id":"acme"}`), now)

	mock.ExpectQuery(`SELECT id, event_type, event_data, event_metadata, created_at\s+FROM events`).
		WithArgs("acme", 20).
		WillReturnRows(rows)

	events, err := NewSqlEventLogger(db).GetByCompany(context.Background(), "acme", 20)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "expense.paid", events[0].Type)
	assert.Equal(t, "acme", events[0].Metadata[MetaCompanyID])
	assert.Equal(t, map[string]any{"amount": "100.00"}, events[0].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}
