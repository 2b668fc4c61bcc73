package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type sqlEventLogger struct {
	db *sql.DB
}

func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding event metadata: %w", err)
	}
	statement := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = el.db.ExecContext(ctx, statement, e.ID, e.Type, jsonData, jsonMetadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// GetByCompany returns the most recent events tagged with companyID, newest first.
func (el *sqlEventLogger) GetByCompany(ctx context.Context, companyID string, limit int) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at
              FROM events
              WHERE event_metadata->>'company_id' = $1
              ORDER BY created_at DESC
              LIMIT $2`
	rows, err := el.db.QueryContext(ctx, query, companyID, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var (
			event        Event
			jsonData     []byte
			jsonMetadata []byte
		)
		if err := rows.Scan(&event.ID, &event.Type, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, err
		}
		if len(jsonData) > 0 {
			var data any
			if err := json.Unmarshal(jsonData, &data); err != nil {
				return events, fmt.Errorf("decoding event data: %w", err)
			}
			event.Data = data
		}
		if len(jsonMetadata) > 0 {
			if err := json.Unmarshal(jsonMetadata, &event.Metadata); err != nil {
				return events, fmt.Errorf("decoding event metadata: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
