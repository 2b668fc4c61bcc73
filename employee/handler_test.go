package employee

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	employees map[uuid.UUID]Employee
	salaries  map[uuid.UUID][]expense.Expense
}

func (f *fakeRepo) Create(_ context.Context, e Employee, salaries []expense.Expense) error {
	f.employees[e.ID] = e
	f.salaries[e.ID] = salaries
	return nil
}

func (f *fakeRepo) Get(_ context.Context, companyID string, id uuid.UUID) (*Employee, error) {
	e, ok := f.employees[id]
	if !ok || e.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (f *fakeRepo) List(_ context.Context, _ string) ([]Employee, error) {
	out := []Employee{}
	for _, e := range f.employees {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, e Employee) (int64, error) {
	f.employees[e.ID] = e
	var n int64
	for i, s := range f.salaries[e.ID] {
		if !s.Paid {
			f.salaries[e.ID][i].Amount = e.Salary
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Delete(_ context.Context, _ string, id uuid.UUID) (int64, error) {
	if _, ok := f.employees[id]; !ok {
		return 0, ErrNotFound
	}
	n := int64(len(f.salaries[id]))
	delete(f.employees, id)
	delete(f.salaries, id)
	return n, nil
}

func newRouter(repo Repository) http.Handler {
	h := NewHandler(repo, eventlogger.Nop, zap.NewNop(), "TRY")
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithCompanyID(req.Context(), "acme")))
		})
	})
	r.Route("/employees", h.Routes)
	return r
}

func TestHandler_Lifecycle(t *testing.T) {
	repo := &fakeRepo{employees: map[uuid.UUID]Employee{}, salaries: map[uuid.UUID][]expense.Expense{}}
	h := newRouter(repo)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/employees",
		strings.NewReader(`{"name":"Elif","salary":"28000","salary_date":"2024-09-05"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"salary_expenses":4`)

	var id uuid.UUID
	for k := range repo.employees {
		id = k
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/employees/"+id.String(),
		strings.NewReader(`{"name":"Elif","salary":"30000"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "30000.00", repo.salaries[id][3].Amount.StringFixed(2))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/employees/"+id.String(),
		strings.NewReader(`{"name":"Elif","salary":"0"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/employees/"+id.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/employees/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
