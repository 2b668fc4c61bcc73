package company

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/billbatista/acasinha-finance/user"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompanies struct {
	companies map[string]Company
	members   map[string][]uuid.UUID
}

func newFakeCompanies() *fakeCompanies {
	return &fakeCompanies{companies: map[string]Company{}, members: map[string][]uuid.UUID{}}
}

func (f *fakeCompanies) Create(_ context.Context, c Company) (Company, error) {
	taken := make([]string, 0, len(f.companies))
	for id := range f.companies {
		taken = append(taken, id)
	}
	c.ID = NextSlug(c.ID, taken)
	f.companies[c.ID] = c
	f.members[c.ID] = append(f.members[c.ID], c.CreatedBy)
	return c, nil
}

func (f *fakeCompanies) Get(_ context.Context, id string) (*Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (f *fakeCompanies) ListForUser(_ context.Context, userID uuid.UUID) ([]Company, error) {
	out := []Company{}
	for id, users := range f.members {
		for _, u := range users {
			if u == userID {
				out = append(out, f.companies[id])
			}
		}
	}
	return out, nil
}

func (f *fakeCompanies) IsMember(_ context.Context, companyID string, userID uuid.UUID) (bool, error) {
	for _, u := range f.members[companyID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCompanies) AddMember(ctx context.Context, companyID string, userID uuid.UUID) error {
	if ok, _ := f.IsMember(ctx, companyID, userID); ok {
		return ErrAlreadyMember
	}
	f.members[companyID] = append(f.members[companyID], userID)
	return nil
}

func (f *fakeCompanies) Delete(_ context.Context, id string) error {
	delete(f.companies, id)
	delete(f.members, id)
	return nil
}

type fakeSelection map[uuid.UUID]string

func (f fakeSelection) Selected(_ context.Context, userID uuid.UUID) (string, error) {
	id, ok := f[userID]
	if !ok {
		return "", ErrNoSelection
	}
	return id, nil
}

func (f fakeSelection) Select(_ context.Context, userID uuid.UUID, companyID string) error {
	f[userID] = companyID
	return nil
}

func (f fakeSelection) Clear(_ context.Context, userID uuid.UUID) error {
	delete(f, userID)
	return nil
}

type fakeFinder map[string]*user.User

func (f fakeFinder) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return f[email], nil
}

// fakeFiles maps company IDs to object keys.
type fakeFiles map[string][]string

func (f fakeFiles) Keys(_ context.Context, companyID string) ([]string, error) {
	return f[companyID], nil
}

func (f fakeFiles) Delete(_ context.Context, key string) error {
	for id, keys := range f {
		f[id] = slices.DeleteFunc(keys, func(k string) bool { return k == key })
	}
	return nil
}

func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func withCompanyParam(r *http.Request, companyID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("companyID", companyID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandler_CreateAndList(t *testing.T) {
	h := NewHandler(newFakeCompanies(), fakeSelection{}, fakeFinder{}, fakeFiles{}, eventlogger.Nop, zap.NewNop())
	owner := uuid.New()

	for range 2 {
		rec := httptest.NewRecorder()
		h.Create(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/companies", strings.NewReader(`{"name":"Deniz Lojistik"}`)), owner))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/companies", nil), owner))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{"deniz-lojistik", "deniz-lojistik-2"}, ids)

	rec = httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/companies", nil), uuid.New()))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_SelectRequiresMembership(t *testing.T) {
	companies := newFakeCompanies()
	selection := fakeSelection{}
	h := NewHandler(companies, selection, fakeFinder{}, fakeFiles{}, eventlogger.Nop, zap.NewNop())

	owner, stranger := uuid.New(), uuid.New()
	c, _ := companies.Create(context.Background(), Company{ID: "acme", Name: "Acme", CreatedBy: owner})

	rec := httptest.NewRecorder()
	h.Select(rec, asUser(httptest.NewRequest(http.MethodPut, "/api/companies/selected", strings.NewReader(`{"company_id":"acme"}`)), stranger))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.Select(rec, asUser(httptest.NewRequest(http.MethodPut, "/api/companies/selected", strings.NewReader(`{"company_id":"acme"}`)), owner))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, c.ID, selection[owner])

	rec = httptest.NewRecorder()
	h.Selected(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/companies/selected", nil), owner))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"acme"`)

	rec = httptest.NewRecorder()
	h.Selected(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/companies/selected", nil), stranger))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SelectedClearsStaleChoice(t *testing.T) {
	companies := newFakeCompanies()
	owner := uuid.New()
	selection := fakeSelection{owner: "gone"}
	h := NewHandler(companies, selection, fakeFinder{}, fakeFiles{}, eventlogger.Nop, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Selected(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/companies/selected", nil), owner))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, selection, owner)
}

func TestHandler_DeleteOnlyByCreator(t *testing.T) {
	companies := newFakeCompanies()
	owner, member := uuid.New(), uuid.New()
	selection := fakeSelection{owner: "acme"}
	h := NewHandler(companies, selection, fakeFinder{}, fakeFiles{}, eventlogger.Nop, zap.NewNop())

	_, _ = companies.Create(context.Background(), Company{ID: "acme", Name: "Acme", CreatedBy: owner})
	_ = companies.AddMember(context.Background(), "acme", member)

	rec := httptest.NewRecorder()
	h.Delete(rec, withCompanyParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/companies/acme", nil), member), "acme"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, withCompanyParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/companies/acme", nil), owner), "acme"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, companies.companies, "acme")
	assert.NotContains(t, selection, owner)
}

func TestHandler_DeleteRemovesFiles(t *testing.T) {
	companies := newFakeCompanies()
	owner := uuid.New()
	files := fakeFiles{
		"acme":  {"companies/acme/contracts/1/nda.pdf", "companies/acme/contracts/2/contract.pdf"},
		"other": {"companies/other/contracts/3/nda.pdf"},
	}
	h := NewHandler(companies, fakeSelection{}, fakeFinder{}, files, eventlogger.Nop, zap.NewNop())
	_, _ = companies.Create(context.Background(), Company{ID: "acme", Name: "Acme", CreatedBy: owner})

	rec := httptest.NewRecorder()
	h.Delete(rec, withCompanyParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/companies/acme", nil), owner), "acme"))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, files["acme"])
	assert.Len(t, files["other"], 1)
}

func TestHandler_DeleteKeepsCompanyWhenFilesUnknown(t *testing.T) {
	companies := newFakeCompanies()
	owner := uuid.New()
	h := NewHandler(companies, fakeSelection{}, fakeFinder{}, failingFiles{}, eventlogger.Nop, zap.NewNop())
	_, _ = companies.Create(context.Background(), Company{ID: "acme", Name: "Acme", CreatedBy: owner})

	rec := httptest.NewRecorder()
	h.Delete(rec, withCompanyParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/companies/acme", nil), owner), "acme"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, companies.companies, "acme")
}

type failingFiles struct{}

func (failingFiles) Keys(context.Context, string) ([]string, error) { return nil, assert.AnError }
func (failingFiles) Delete(context.Context, string) error { return assert.AnError }

func TestHandler_AddMember(t *testing.T) {
	companies := newFakeCompanies()
	owner := uuid.New()
	invitee := &user.User{ID: uuid.New(), Email: "mert@example.com"}
	h := NewHandler(companies, fakeSelection{}, fakeFinder{invitee.Email: invitee}, fakeFiles{}, eventlogger.Nop, zap.NewNop())
	_, _ = companies.Create(context.Background(), Company{ID: "acme", Name: "Acme", CreatedBy: owner})

	req := func(body string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/companies/acme/members", strings.NewReader(body))
		r = asUser(r, owner)
		return r.WithContext(middleware.WithCompanyID(r.Context(), "acme"))
	}

	rec := httptest.NewRecorder()
	h.AddMember(rec, req(`{"email":"mert@example.com"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.AddMember(rec, req(`{"email":"mert@example.com"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.AddMember(rec, req(`{"email":"nobody@example.com"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
