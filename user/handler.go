package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/billbatista/acasinha-finance/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrBadCredentials = errors.New("invalid email or password")

type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID) (*session.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type Handler struct {
	users        Repository
	sessions     SessionStore
	events       eventlogger.Recorder
	log          *zap.Logger
	secureCookie bool
}

func NewHandler(users Repository, sessions SessionStore, events eventlogger.Recorder, log *zap.Logger, secureCookie bool) *Handler {
	return &Handler{users: users, sessions: sessions, events: events, log: log.Named("user"), secureCookie: secureCookie}
}

type credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrBlankPassword), errors.Is(err, ErrShortPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrBadCredentials):
		return http.StatusUnauthorized
	}
	return 0
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	registered, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	sess, err := h.sessions.Create(r.Context(), registered.ID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	http.SetCookie(w, sess.Cookie(h.secureCookie))

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("user.registered"),
		eventlogger.WithData(map[string]string{
			"user_id":    registered.ID.String(),
			"email":      registered.Email,
			"session_id": sess.ID.String(),
		}),
		eventlogger.WithActor(registered.ID, ""),
	))

	httpx.JSON(w, http.StatusCreated, registered)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	found, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	if found == nil || h.users.VerifyPassword(found.PasswordHash, req.Password) != nil {
		httpx.Error(w, h.log, ErrBadCredentials, statusFor)
		return
	}

	sess, err := h.sessions.Create(r.Context(), found.ID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	http.SetCookie(w, sess.Cookie(h.secureCookie))

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("user.logged_in"),
		eventlogger.WithData(map[string]string{
			"user_id":    found.ID.String(),
			"email":      found.Email,
			"session_id": sess.ID.String(),
		}),
		eventlogger.WithActor(found.ID, ""),
	))

	httpx.JSON(w, http.StatusOK, found)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.log.Warn("deleting session on logout", zap.Error(err))
		}
	}
	http.SetCookie(w, session.ExpiredCookie())
	httpx.NoContent(w)
}

// LogoutAll ends every session of the current user, on every device.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	if err := h.sessions.DeleteByUserID(r.Context(), userID); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("user.logged_out_everywhere"),
		eventlogger.WithActor(userID, ""),
	))

	http.SetCookie(w, session.ExpiredCookie())
	httpx.NoContent(w)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	found, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	if found == nil {
		httpx.JSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	httpx.JSON(w, http.StatusOK, found)
}

type updateNameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req updateNameRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	if err := h.users.UpdateName(r.Context(), userID, req.Name); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("user.name_updated"),
		eventlogger.WithData(map[string]string{
			"user_id": userID.String(),
			"name":    req.Name,
		}),
		eventlogger.WithActor(userID, ""),
	))

	httpx.NoContent(w)
}
