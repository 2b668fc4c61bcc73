package eventlogger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MetaUserID    = "user_id"
	MetaCompanyID = "company_id"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// WithActor tags the event with the user who caused it and the company it
// belongs to.
func WithActor(userID uuid.UUID, companyID string) EventOption {
	return func(e *Event) {
		if userID != uuid.Nil {
			e.Metadata[MetaUserID] = userID.String()
		}
		if companyID != "" {
			e.Metadata[MetaCompanyID] = companyID
		}
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByCompany(ctx context.Context, companyID string, limit int) ([]Event, error)
}

// Recorder is what request handlers hold: fire and forget.
type Recorder interface {
	Log(event Event)
}

type nopRecorder struct{}

func (nopRecorder) Log(Event) {}

// Nop discards every event.
var Nop Recorder = nopRecorder{}
