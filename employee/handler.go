package employee

import (
	"errors"
	"net/http"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrBadID = errors.New("malformed id")

type Handler struct {
	employees Repository
	events    eventlogger.Recorder
	log       *zap.Logger
	currency  string
}

func NewHandler(employees Repository, events eventlogger.Recorder, log *zap.Logger, currency string) *Handler {
	return &Handler{employees: employees, events: events, log: log.Named("employee"), currency: currency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{employeeID}", h.Update)
	r.Delete("/{employeeID}", h.Delete)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadID), errors.Is(err, ErrEmptyName), errors.Is(err, ErrNoSalary),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest
	}
	return 0
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.Error(w, h.log, err, statusFor)
}

func (h *Handler) record(r *http.Request, eventType string, data any) {
	userID, companyID := middleware.Actor(r.Context())
	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithData(data),
		eventlogger.WithActor(userID, companyID),
	))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	employees, err := h.employees.List(r.Context(), companyID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employees)
}

type createRequest struct {
	Name       string       `json:"name" validate:"required,max=200"`
	Salary     money.Amount `json:"salary"`
	SalaryDate httpx.Date   `json:"salary_date" validate:"required"`
}

type createResponse struct {
	Employee         Employee `json:"employee"`
	SalaryExpenses   int      `json:"salary_expenses"`
	SalaryExpenseIDs []string `json:"salary_expense_ids"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	var req createRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	e, salaries, err := Hire(companyID, req.Name, h.currency, req.Salary.Decimal, req.SalaryDate.Time)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.employees.Create(r.Context(), e, salaries); err != nil {
		h.fail(w, err)
		return
	}

	ids := make([]string, 0, len(salaries))
	for _, s := range salaries {
		ids = append(ids, s.ID.String())
	}

	h.record(r, "employee.created", map[string]any{
		"employee_id":     e.ID,
		"name":            e.Name,
		"salary":          e.Salary.StringFixed(2),
		"salary_expenses": len(salaries),
	})
	httpx.JSON(w, http.StatusCreated, createResponse{Employee: e, SalaryExpenses: len(salaries), SalaryExpenseIDs: ids})
}

type updateRequest struct {
	Name   string       `json:"name" validate:"required,max=200"`
	Salary money.Amount `json:"salary"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		h.fail(w, ErrBadID)
		return
	}

	var req updateRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	current, err := h.employees.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	edited, err := New(companyID, req.Name, req.Salary.Decimal, current.SalaryDate)
	if err != nil {
		h.fail(w, err)
		return
	}
	current.Name = edited.Name
	current.Salary = edited.Salary

	changed, err := h.employees.Update(r.Context(), *current)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "employee.updated", map[string]any{
		"employee_id":      id,
		"salary":           current.Salary.StringFixed(2),
		"expenses_changed": changed,
	})
	httpx.JSON(w, http.StatusOK, current)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		h.fail(w, ErrBadID)
		return
	}

	removed, err := h.employees.Delete(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "employee.deleted", map[string]any{"employee_id": id, "expenses_removed": removed})
	httpx.NoContent(w)
}
