package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	byEmail map[string]*User
}

func (f *fakeUsers) Register(_ context.Context, email, password string) (*User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, ErrEmailExists
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &User{ID: uuid.New(), Email: email, PasswordHash: string(hash)}
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) VerifyPassword(hashed, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}

func (f *fakeUsers) UpdateName(context.Context, uuid.UUID, string) error { return nil }

type fakeSessions struct{}

func (fakeSessions) Create(_ context.Context, userID uuid.UUID) (*session.Session, error) {
	return &session.Session{ID: uuid.New(), UserID: userID, Token: "tok-" + userID.String(), ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (fakeSessions) Delete(context.Context, string) error { return nil }

func (fakeSessions) DeleteByUserID(context.Context, uuid.UUID) error { return nil }

func newTestHandler() *Handler {
	return NewHandler(&fakeUsers{byEmail: map[string]*User{}}, fakeSessions{}, eventlogger.Nop, zap.NewNop(), false)
}

func TestRegisterThenLogin(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/user/register",
		strings.NewReader(`{"email":"ayse@example.com","password":"correct-horse"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, session.CookieName, rec.Result().Cookies()[0].Name)

	rec = httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/user/register",
		strings.NewReader(`{"email":"ayse@example.com","password":"correct-horse"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/user/login",
		strings.NewReader(`{"email":"ayse@example.com","password":"correct-horse"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/user/login",
		strings.NewReader(`{"email":"ayse@example.com","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ExpiresCookie(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/user/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}
