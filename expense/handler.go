package expense

import (
	"errors"
	"net/http"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/listing"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/billbatista/acasinha-finance/schedule"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrBadID = errors.New("malformed id")

type Handler struct {
	expenses Repository
	taxonomy Taxonomy
	events   eventlogger.Recorder
	log      *zap.Logger
	currency string
	pageSize int
	now      func() time.Time
}

func NewHandler(expenses Repository, taxonomy Taxonomy, events eventlogger.Recorder, log *zap.Logger, currency string, pageSize int) *Handler {
	return &Handler{
		expenses: expenses,
		taxonomy: taxonomy,
		events:   events,
		log:      log.Named("expense"),
		currency: currency,
		pageSize: pageSize,
		now:      time.Now,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.CreateOneTime)
	r.Post("/recurring", h.CreateRecurring)
	r.Delete("/groups/{groupID}", h.DeleteGroup)
	r.Route("/{expenseID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/pay", h.Pay)
		r.Post("/unpay", h.Unpay)
		r.Post("/partial", h.PayPartial)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadID), errors.Is(err, ErrEmptyName), errors.Is(err, ErrEmptyTitle),
		errors.Is(err, ErrUnknownSubcategory), errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, schedule.ErrInvalidCount), errors.Is(err, schedule.ErrInvalidStart),
		errors.Is(err, schedule.ErrTooManyMonths):
		return http.StatusBadRequest
	case errors.Is(err, ErrPartialTooLarge), errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrNotPaid):
		return http.StatusUnprocessableEntity
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

func urlID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, ErrBadID
	}
	return id, nil
}

func (h *Handler) today() time.Time {
	return truncateDay(h.now())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	expenses, err := h.expenses.List(r.Context(), companyID)
	if err != nil {
		h.fail(w, err)
		return
	}

	q := listing.ParseQuery(r.URL.Query(), h.pageSize)
	httpx.JSON(w, http.StatusOK, listing.Apply(expenses, q, ListOptions(h.now())))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "expenseID")
	if err != nil {
		h.fail(w, err)
		return
	}

	e, err := h.expenses.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

type expenseRequest struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Title       string       `json:"title" validate:"required,max=120"`
	Subcategory string       `json:"subcategory" validate:"max=120"`
	Amount      money.Amount `json:"amount"`
	DueDate     httpx.Date   `json:"due_date" validate:"required"`
	Note        string       `json:"note" validate:"max=1000"`
}

func (req expenseRequest) details(currency string) Details {
	return Details{Name: req.Name, Title: req.Title, Subcategory: req.Subcategory, Currency: currency, Note: req.Note}
}

func (h *Handler) CreateOneTime(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	var req expenseRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	e, err := NewOneTime(companyID, req.details(h.currency), req.Amount.Decimal, req.DueDate.Time)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := CheckCategory(r.Context(), h.taxonomy, companyID, e.Title, e.Subcategory); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.expenses.Create(r.Context(), e); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.created", e)
	httpx.JSON(w, http.StatusCreated, e)
}

type recurringRequest struct {
	expenseRequest
	Months int `json:"total_months" validate:"gte=1,lte=120"`
}

func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	var req recurringRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	plan, err := NewRecurring(companyID, req.details(h.currency), req.Amount.Decimal, req.Months, req.DueDate.Time)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := CheckCategory(r.Context(), h.taxonomy, companyID, plan[0].Title, plan[0].Subcategory); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.expenses.Create(r.Context(), plan...); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.recurring_created", map[string]any{
		"group_id": plan[0].GroupID,
		"months":   len(plan),
		"amount":   req.Amount.StringFixed(2),
	})
	httpx.JSON(w, http.StatusCreated, plan)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "expenseID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req expenseRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	current, err := h.expenses.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if current.Paid {
		h.fail(w, ErrAlreadyPaid)
		return
	}

	edited, err := NewOneTime(companyID, req.details(current.Currency), req.Amount.Decimal, req.DueDate.Time)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := CheckCategory(r.Context(), h.taxonomy, companyID, edited.Title, edited.Subcategory); err != nil {
		h.fail(w, err)
		return
	}

	updated := *current
	updated.Name = edited.Name
	updated.Title = edited.Title
	updated.Subcategory = edited.Subcategory
	updated.Amount = edited.Amount
	updated.DueDate = edited.DueDate
	updated.Note = edited.Note

	if err := h.expenses.Update(r.Context(), updated); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.updated", updated)
	httpx.JSON(w, http.StatusOK, updated)
}

type payRequest struct {
	PaidDate httpx.Date `json:"paid_date"`
}

// Pay marks an expense paid, on the body's paid_date or today.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "expenseID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req payRequest
	if r.ContentLength > 0 {
		if err := httpx.Decode(r, &req); err != nil {
			h.fail(w, err)
			return
		}
	}
	on := h.today()
	if !req.PaidDate.IsZero() {
		on = req.PaidDate.Time
	}

	current, err := h.expenses.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if current.Paid {
		h.fail(w, ErrAlreadyPaid)
		return
	}

	current.MarkPaid(on)
	if err := h.expenses.SetPaid(r.Context(), companyID, id, current.PaidDate); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.paid", map[string]string{"expense_id": id.String(), "paid_date": on.Format("2006-01-02")})
	httpx.JSON(w, http.StatusOK, current)
}

func (h *Handler) Unpay(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "expenseID")
	if err != nil {
		h.fail(w, err)
		return
	}

	current, err := h.expenses.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !current.Paid {
		h.fail(w, ErrNotPaid)
		return
	}

	current.MarkUnpaid()
	if err := h.expenses.SetPaid(r.Context(), companyID, id, nil); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.unpaid", map[string]string{"expense_id": id.String()})
	httpx.JSON(w, http.StatusOK, current)
}

type partialRequest struct {
	Amount   money.Amount `json:"amount"`
	PaidDate httpx.Date   `json:"paid_date"`
}

type partialResponse struct {
	Remaining *Expense `json:"remaining"`
	Paid      *Expense `json:"paid"`
}

func (h *Handler) PayPartial(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "expenseID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req partialRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	on := h.today()
	if !req.PaidDate.IsZero() {
		on = req.PaidDate.Time
	}

	remaining, settled, err := h.expenses.PayPartial(r.Context(), companyID, id, req.Amount.Decimal, on)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.partial_paid", map[string]string{
		"expense_id": id.String(),
		"paid_id":    settled.ID.String(),
		"amount":     settled.Amount.StringFixed(2),
		"remaining":  remaining.Amount.StringFixed(2),
	})
	httpx.JSON(w, http.StatusOK, partialResponse{Remaining: remaining, Paid: settled})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "expenseID")
	if err != nil {
		h.fail(w, err)
		return
	}

	if err := h.expenses.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.deleted", map[string]string{"expense_id": id.String()})
	httpx.NoContent(w)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	groupID, err := urlID(r, "groupID")
	if err != nil {
		h.fail(w, err)
		return
	}

	n, err := h.expenses.DeleteGroup(r.Context(), companyID, groupID)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "expense.group_deleted", map[string]any{"group_id": groupID, "deleted": n})
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
