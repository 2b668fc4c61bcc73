// Package httpx holds the JSON plumbing shared by every handler: response
// writing, error responses, request decoding and validation.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var (
	ErrInvalidJSON = errors.New("invalid JSON body")
	ErrInvalidDate = errors.New("dates must look like 2006-01-02")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists the fields of a request that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err as a JSON error. status maps domain errors to HTTP
// codes and returns 0 for errors it does not know; those become a 500 whose
// message is logged, not returned.
func Error(w http.ResponseWriter, log *zap.Logger, err error, status func(error) int) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields})
		return
	}
	if errors.Is(err, ErrInvalidJSON) || errors.Is(err, ErrInvalidDate) {
		JSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	code := 0
	if status != nil {
		code = status(err)
	}
	if code == 0 || code >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	JSON(w, code, errorBody{Error: err.Error()})
}

// Decode reads a JSON body into dst and runs struct validation on it.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		if errors.Is(err, ErrInvalidDate) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return Validate(dst)
}

// Validate runs the `validate` struct tags of v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gt", "gte", "min":
		return "must be at least " + fe.Param()
	case "lt", "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

// Date is a calendar day in JSON, written as "2006-01-02". Full RFC 3339
// timestamps are accepted on input.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// ParseDate reads "2006-01-02" or RFC 3339 into a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
