package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/income"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

var (
	ErrBadYear  = errors.New("year must be a four digit number")
	ErrBadLimit = errors.New("limit must be a positive number")
)

type IncomeLister interface {
	List(ctx context.Context, companyID string) ([]income.Income, error)
}

type ExpenseLister interface {
	List(ctx context.Context, companyID string) ([]expense.Expense, error)
}

// ActivityFeed reads back the events recorded for a company.
type ActivityFeed interface {
	GetByCompany(ctx context.Context, companyID string, limit int) ([]eventlogger.Event, error)
}

type Handler struct {
	incomes  IncomeLister
	expenses ExpenseLister
	activity ActivityFeed
	currency string
	log      *zap.Logger
	now      func() time.Time
}

func NewHandler(incomes IncomeLister, expenses ExpenseLister, activity ActivityFeed, currency string, log *zap.Logger) *Handler {
	return &Handler{
		incomes:  incomes,
		expenses: expenses,
		activity: activity,
		currency: currency,
		log:      log.Named("dashboard"),
		now:      time.Now,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/dashboard", h.Summary)
	r.Get("/activity", h.Activity)
}

func statusFor(err error) int {
	if errors.Is(err, ErrBadYear) || errors.Is(err, ErrBadLimit) {
		return http.StatusBadRequest
	}
	return 0
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.Error(w, h.log, err, statusFor)
}

type summaryResponse struct {
	Summary
	Currency string `json:"currency"`
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	now := h.now().UTC()
	year := now.Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1000 || y > 9999 {
			h.fail(w, ErrBadYear)
			return
		}
		year = y
	}

	incomes, err := h.incomes.List(r.Context(), companyID)
	if err != nil {
		h.fail(w, err)
		return
	}
	expenses, err := h.expenses.List(r.Context(), companyID)
	if err != nil {
		h.fail(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, summaryResponse{
		Summary:  Summarize(incomes, expenses, year, now),
		Currency: h.currency,
	})
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.fail(w, ErrBadLimit)
			return
		}
		limit = min(n, maxActivityLimit)
	}

	events, err := h.activity.GetByCompany(r.Context(), companyID, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}
