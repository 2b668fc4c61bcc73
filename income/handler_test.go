package income

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/listing"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	items map[uuid.UUID]Income
}

func newFakeRepo() *fakeRepo { return &fakeRepo{items: map[uuid.UUID]Income{}} }

func (f *fakeRepo) Create(_ context.Context, incomes ...Income) error {
	for _, i := range incomes {
		f.items[i.ID] = i
	}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, companyID string, id uuid.UUID) (*Income, error) {
	i, ok := f.items[id]
	if !ok || i.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return &i, nil
}

func (f *fakeRepo) List(_ context.Context, companyID string) ([]Income, error) {
	out := []Income{}
	for _, i := range f.items {
		if i.CompanyID == companyID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, i Income) error {
	f.items[i.ID] = i
	return nil
}

func (f *fakeRepo) SetStatus(_ context.Context, _ string, id uuid.UUID, status Status, paidDate *time.Time) error {
	i := f.items[id]
	i.Status = status
	i.PaidDate = paidDate
	f.items[id] = i
	return nil
}

func (f *fakeRepo) CollectPartial(ctx context.Context, companyID string, id uuid.UUID, paid decimal.Decimal, paidDate time.Time) (*Income, *Income, error) {
	current, err := f.Get(ctx, companyID, id)
	if err != nil {
		return nil, nil, err
	}
	remaining, collected, err := SplitPartial(*current, paid, paidDate)
	if err != nil {
		return nil, nil, err
	}
	f.items[remaining.ID] = remaining
	f.items[collected.ID] = collected
	return &remaining, &collected, nil
}

func (f *fakeRepo) Delete(_ context.Context, _ string, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRepo) DeleteGroup(_ context.Context, _ string, groupID uuid.UUID) (int64, error) {
	var n int64
	for id, i := range f.items {
		if i.GroupID != nil && *i.GroupID == groupID {
			delete(f.items, id)
			n++
		}
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func newRouter(repo Repository, companyID string) http.Handler {
	h := NewHandler(repo, eventlogger.Nop, zap.NewNop(), "TRY", 10)
	h.now = func() time.Time { return time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUserID(req.Context(), uuid.New())
			ctx = middleware.WithCompanyID(ctx, companyID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/incomes", h.Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAndList(t *testing.T) {
	repo := newFakeRepo()
	h := newRouter(repo, "acme")

	rec := do(t, h, http.MethodPost, "/incomes", `{"name":"Audit","amount":"1200","expected_date":"2024-06-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/incomes/installments", `{"name":"Build","total":1000,"count":4,"start_date":"2024-07-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var plan []Income
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.Len(t, plan, 4)
	assert.Equal(t, time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC), plan[2].ExpectedDate)

	rec = do(t, h, http.MethodGet, "/incomes?tab=overdue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page listing.Page[Income]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Audit", page.Items[0].Name)

	rec = do(t, h, http.MethodGet, "/incomes?page=1&page_size=2&sort=asc", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, "Audit", page.Items[0].Name)
}

func TestHandler_CreateValidation(t *testing.T) {
	h := newRouter(newFakeRepo(), "acme")

	rec := do(t, h, http.MethodPost, "/incomes", `{"name":"","amount":"10","expected_date":"2024-06-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name"`)

	rec = do(t, h, http.MethodPost, "/incomes", `{"name":"x","amount":"-10","expected_date":"2024-06-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/incomes/installments", `{"name":"x","total":"100","count":2,"start_date":"2024-06-01","percentages":[50,40]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "percentages must sum to 100")
}

func TestHandler_StatusFlow(t *testing.T) {
	repo := newFakeRepo()
	h := newRouter(repo, "acme")
	i, _ := NewOneTime("acme", "Invoice", d("500"), time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC), "TRY", "")
	_ = repo.Create(context.Background(), i)
	path := "/incomes/" + i.ID.String()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path+"/finalize", "").Code)
	assert.Equal(t, StatusFinalized, repo.items[i.ID].Status)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path+"/collect", "").Code)
	got := repo.items[i.ID]
	assert.Equal(t, StatusCollected, got.Status)
	require.NotNil(t, got.PaidDate)
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), *got.PaidDate)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPost, path+"/collect", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPut, path, `{"name":"x","amount":"1","expected_date":"2024-06-01"}`).Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path+"/revert", "").Code)
	assert.Equal(t, StatusPending, repo.items[i.ID].Status)
	assert.Nil(t, repo.items[i.ID].PaidDate)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path+"/collect", `{"paid_date":"2024-06-12"}`).Code)
	assert.Equal(t, time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC), *repo.items[i.ID].PaidDate)
}

func TestHandler_Partial(t *testing.T) {
	repo := newFakeRepo()
	h := newRouter(repo, "acme")
	i, _ := NewOneTime("acme", "Invoice", d("500"), time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC), "TRY", "")
	_ = repo.Create(context.Background(), i)
	path := "/incomes/" + i.ID.String() + "/partial"

	rec := do(t, h, http.MethodPost, path, `{"amount":"500"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, path, `{"amount":"125.25"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, repo.items, 2)
	assert.Equal(t, "374.75", repo.items[i.ID].Amount.StringFixed(2))
}

func TestHandler_TenantIsolation(t *testing.T) {
	repo := newFakeRepo()
	i, _ := NewOneTime("acme", "Invoice", d("500"), time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC), "TRY", "")
	_ = repo.Create(context.Background(), i)

	h := newRouter(repo, "globex")
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/incomes/"+i.ID.String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/incomes/not-a-uuid", "").Code)
}

func TestHandler_DeleteGroup(t *testing.T) {
	repo := newFakeRepo()
	h := newRouter(repo, "acme")
	plan, _ := NewRecurring("acme", "Support", d("100"), 3, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), "TRY", "")
	_ = repo.Create(context.Background(), plan...)

	rec := do(t, h, http.MethodDelete, "/incomes/groups/"+plan[0].GroupID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":3}`, rec.Body.String())
	assert.Empty(t, repo.items)
}
