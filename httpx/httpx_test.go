package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type createRequest struct {
	Name   string `json:"name" validate:"required"`
	Months int    `json:"total_months" validate:"gte=1,lte=120"`
	Due    Date   `json:"due_date" validate:"required"`
}

func TestDecode(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Kira","total_months":3,"due_date":"2024-02-29"}`))
		var req createRequest
		require.NoError(t, Decode(r, &req))
		assert.Equal(t, "Kira", req.Name)
		assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), req.Due.Time)
	})

	t.Run("validation errors use json names", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"total_months":0}`))
		var req createRequest
		err := Decode(r, &req)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "is required", verr.Fields["name"])
		assert.Equal(t, "must be at least 1", verr.Fields["total_months"])
		assert.Equal(t, "is required", verr.Fields["due_date"])
	})

	t.Run("malformed json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var req createRequest
		assert.ErrorIs(t, Decode(r, &req), ErrInvalidJSON)
	})

	t.Run("bad date", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","total_months":1,"due_date":"31/01/2024"}`))
		var req createRequest
		assert.ErrorIs(t, Decode(r, &req), ErrInvalidDate)
	})
}

func TestError(t *testing.T) {
	errGone := errors.New("record not found")
	status := func(err error) int {
		if errors.Is(err, errGone) {
			return http.StatusNotFound
		}
		return 0
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"mapped", errGone, http.StatusNotFound, "record not found"},
		{"wrapped mapped", errors.Join(errGone), http.StatusNotFound, "record not found"},
		{"unknown hides message", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
		{"validation", &ValidationError{Fields: map[string]string{"name": "is required"}}, http.StatusBadRequest, "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, zap.NewNop(), tt.err, status)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["error"])
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Date{time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01"`, string(b))

	b, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(b))
}
