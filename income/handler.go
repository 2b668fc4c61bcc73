package income

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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrBadID = errors.New("malformed id")

type Handler struct {
	incomes  Repository
	events   eventlogger.Recorder
	log      *zap.Logger
	currency string
	pageSize int
	now      func() time.Time
}

func NewHandler(incomes Repository, events eventlogger.Recorder, log *zap.Logger, currency string, pageSize int) *Handler {
	return &Handler{
		incomes:  incomes,
		events:   events,
		log:      log.Named("income"),
		currency: currency,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// Routes registers the income endpoints on a tenant-scoped router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.CreateOneTime)
	r.Post("/installments", h.CreateInstallments)
	r.Post("/recurring", h.CreateRecurring)
	r.Delete("/groups/{groupID}", h.DeleteGroup)
	r.Route("/{incomeID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/finalize", h.Finalize)
		r.Post("/collect", h.Collect)
		r.Post("/revert", h.Revert)
		r.Post("/partial", h.CollectPartial)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadID), errors.Is(err, ErrEmptyName),
		errors.Is(err, money.ErrInvalidAmount), errors.Is(err, money.ErrPercentSum), errors.Is(err, money.ErrPercentValue),
		errors.Is(err, schedule.ErrInvalidCount), errors.Is(err, schedule.ErrInvalidStart),
		errors.Is(err, schedule.ErrPercentCount), errors.Is(err, schedule.ErrTooManyMonths):
		return http.StatusBadRequest
	case errors.Is(err, ErrPartialTooLarge), errors.Is(err, ErrAlreadyCollected),
		errors.Is(err, ErrNotCollected), errors.Is(err, ErrBadTransition):
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	incomes, err := h.incomes.List(r.Context(), companyID)
	if err != nil {
		h.fail(w, err)
		return
	}

	q := listing.ParseQuery(r.URL.Query(), h.pageSize)
	httpx.JSON(w, http.StatusOK, listing.Apply(incomes, q, ListOptions(h.now())))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "incomeID")
	if err != nil {
		h.fail(w, err)
		return
	}

	i, err := h.incomes.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, i)
}

type oneTimeRequest struct {
	Name         string       `json:"name" validate:"required,max=200"`
	Amount       money.Amount `json:"amount"`
	ExpectedDate httpx.Date   `json:"expected_date" validate:"required"`
	Note         string       `json:"note" validate:"max=1000"`
}

func (h *Handler) CreateOneTime(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	var req oneTimeRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	i, err := NewOneTime(companyID, req.Name, req.Amount.Decimal, req.ExpectedDate.Time, h.currency, req.Note)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.incomes.Create(r.Context(), i); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "income.created", i)
	httpx.JSON(w, http.StatusCreated, i)
}

type installmentsRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Total       money.Amount      `json:"total"`
	Count       int               `json:"count" validate:"gte=1,lte=120"`
	StartDate   httpx.Date        `json:"start_date" validate:"required"`
	Percentages []decimal.Decimal `json:"percentages"`
	Note        string            `json:"note" validate:"max=1000"`
}

func (h *Handler) CreateInstallments(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	var req installmentsRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	plan, err := NewInstallments(companyID, req.Name, req.Total.Decimal, req.Count, req.StartDate.Time, req.Percentages, h.currency, req.Note)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.incomes.Create(r.Context(), plan...); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "income.installments_created", map[string]any{
		"group_id": plan[0].GroupID,
		"count":    len(plan),
		"total":    req.Total.StringFixed(2),
	})
	httpx.JSON(w, http.StatusCreated, plan)
}

type recurringRequest struct {
	Name      string       `json:"name" validate:"required,max=200"`
	Amount    money.Amount `json:"amount"`
	Months    int          `json:"months" validate:"gte=1,lte=120"`
	StartDate httpx.Date   `json:"start_date" validate:"required"`
	Note      string       `json:"note" validate:"max=1000"`
}

func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	var req recurringRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	plan, err := NewRecurring(companyID, req.Name, req.Amount.Decimal, req.Months, req.StartDate.Time, h.currency, req.Note)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.incomes.Create(r.Context(), plan...); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "income.recurring_created", map[string]any{
		"group_id": plan[0].GroupID,
		"months":   len(plan),
		"amount":   req.Amount.StringFixed(2),
	})
	httpx.JSON(w, http.StatusCreated, plan)
}

type updateRequest struct {
	Name         string       `json:"name" validate:"required,max=200"`
	Amount       money.Amount `json:"amount"`
	ExpectedDate httpx.Date   `json:"expected_date" validate:"required"`
	Note         string       `json:"note" validate:"max=1000"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "incomeID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req updateRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	current, err := h.incomes.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if current.Status == StatusCollected {
		h.fail(w, ErrAlreadyCollected)
		return
	}

	edited, err := NewOneTime(companyID, req.Name, req.Amount.Decimal, req.ExpectedDate.Time, current.Currency, req.Note)
	if err != nil {
		h.fail(w, err)
		return
	}
	updated := *current
	updated.Name = edited.Name
	updated.Amount = edited.Amount
	updated.ExpectedDate = edited.ExpectedDate
	updated.Note = edited.Note

	if err := h.incomes.Update(r.Context(), updated); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "income.updated", updated)
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusFinalized, "income.finalized")
}

func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusCollected, "income.collected")
}

func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusPending, "income.reverted")
}

type collectRequest struct {
	PaidDate httpx.Date `json:"paid_date"`
}

// transition moves an income to status. Collecting stamps the paid date,
// taken from the optional body and defaulting to today.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to Status, eventType string) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "incomeID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var paidDate *time.Time
	if to == StatusCollected {
		var req collectRequest
		if r.ContentLength > 0 {
			if err := httpx.Decode(r, &req); err != nil {
				h.fail(w, err)
				return
			}
		}
		day := truncateDay(h.now())
		if !req.PaidDate.IsZero() {
			day = req.PaidDate.Time
		}
		paidDate = &day
	}

	current, err := h.incomes.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := CheckTransition(current.Status, to); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.incomes.SetStatus(r.Context(), companyID, id, to, paidDate); err != nil {
		h.fail(w, err)
		return
	}

	current.Status = to
	current.PaidDate = paidDate
	h.record(r, eventType, map[string]string{"income_id": id.String(), "status": string(to)})
	httpx.JSON(w, http.StatusOK, current)
}

type partialRequest struct {
	Amount   money.Amount `json:"amount"`
	PaidDate httpx.Date   `json:"paid_date"`
}

type partialResponse struct {
	Remaining *Income `json:"remaining"`
	Collected *Income `json:"collected"`
}

func (h *Handler) CollectPartial(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "incomeID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req partialRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	paidDate := truncateDay(h.now())
	if !req.PaidDate.IsZero() {
		paidDate = req.PaidDate.Time
	}

	remaining, collected, err := h.incomes.CollectPartial(r.Context(), companyID, id, req.Amount.Decimal, paidDate)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "income.partial_collected", map[string]string{
		"income_id":    id.String(),
		"collected_id": collected.ID.String(),
		"amount":       collected.Amount.StringFixed(2),
		"remaining":    remaining.Amount.StringFixed(2),
	})
	httpx.JSON(w, http.StatusOK, partialResponse{Remaining: remaining, Collected: collected})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := urlID(r, "incomeID")
	if err != nil {
		h.fail(w, err)
		return
	}

	if err := h.incomes.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "income.deleted", map[string]string{"income_id": id.String()})
	httpx.NoContent(w)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	groupID, err := urlID(r, "groupID")
	if err != nil {
		h.fail(w, err)
		return
	}

	n, err := h.incomes.DeleteGroup(r.Context(), companyID, groupID)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "income.group_deleted", map[string]any{"group_id": groupID, "deleted": n})
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
