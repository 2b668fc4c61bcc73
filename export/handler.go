package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/income"
	"github.com/billbatista/acasinha-finance/listing"
	"github.com/billbatista/acasinha-finance/middleware"
	"go.uber.org/zap"
)

const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type IncomeLister interface {
	List(ctx context.Context, companyID string) ([]income.Income, error)
}

type ExpenseLister interface {
	List(ctx context.Context, companyID string) ([]expense.Expense, error)
}

type Handler struct {
	incomes  IncomeLister
	expenses ExpenseLister
	events   eventlogger.Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewHandler(incomes IncomeLister, expenses ExpenseLister, events eventlogger.Recorder, log *zap.Logger) *Handler {
	return &Handler{
		incomes:  incomes,
		expenses: expenses,
		events:   events,
		log:      log.Named("export"),
		now:      time.Now,
	}
}

// Incomes downloads the income list. The tab, q and sort query parameters
// select rows exactly like the list endpoint; paging is ignored.
func (h *Handler) Incomes(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	incomes, err := h.incomes.List(r.Context(), companyID)
	if err != nil {
		httpx.Error(w, h.log, err, nil)
		return
	}
	q := listing.ParseQuery(r.URL.Query(), 0)
	rows := listing.Filter(incomes, q, income.ListOptions(h.now()))

	var buf bytes.Buffer
	if err := Workbook(&buf, "Incomes", incomeColumns, rows); err != nil {
		httpx.Error(w, h.log, err, nil)
		return
	}
	h.send(w, r, "incomes", companyID, len(rows), &buf)
}

func (h *Handler) Expenses(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	expenses, err := h.expenses.List(r.Context(), companyID)
	if err != nil {
		httpx.Error(w, h.log, err, nil)
		return
	}
	q := listing.ParseQuery(r.URL.Query(), 0)
	rows := listing.Filter(expenses, q, expense.ListOptions(h.now()))

	var buf bytes.Buffer
	if err := Workbook(&buf, "Expenses", expenseColumns, rows); err != nil {
		httpx.Error(w, h.log, err, nil)
		return
	}
	h.send(w, r, "expenses", companyID, len(rows), &buf)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, kind, companyID string, count int, buf *bytes.Buffer) {
	name := fmt.Sprintf("%s-%s-%s.xlsx", companyID, kind, h.now().Format("2006-01-02"))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("writing export", zap.Error(err), zap.String("kind", kind))
		return
	}

	userID, _ := middleware.Actor(r.Context())
	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(kind+".exported"),
		eventlogger.WithData(map[string]int{"rows": count}),
		eventlogger.WithActor(userID, companyID),
	))
}
