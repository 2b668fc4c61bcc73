package company

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/billbatista/acasinha-finance/user"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnknownUser = errors.New("no user with that email")

// UserFinder resolves invitees by email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Files are the stored objects that outlive a company's rows unless removed
// explicitly.
type Files interface {
	Keys(ctx context.Context, companyID string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

type Handler struct {
	companies Repository
	selection SelectionStore
	users     UserFinder
	files     Files
	events    eventlogger.Recorder
	log       *zap.Logger
}

func NewHandler(companies Repository, selection SelectionStore, users UserFinder, files Files, events eventlogger.Recorder, log *zap.Logger) *Handler {
	return &Handler{companies: companies, selection: selection, users: users, files: files, events: events, log: log.Named("company")}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoSelection), errors.Is(err, ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotCreator), errors.Is(err, ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyMember):
		return http.StatusConflict
	}
	return 0
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	companies, err := h.companies.ListForUser(r.Context(), userID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	httpx.JSON(w, http.StatusOK, companies)
}

type createRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req createRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	c, err := NewCompany(req.Name, userID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	c, err = h.companies.Create(r.Context(), c)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("company.created"),
		eventlogger.WithData(c),
		eventlogger.WithActor(userID, c.ID),
	))

	httpx.JSON(w, http.StatusCreated, c)
}

// Delete is only allowed to the user who created the company. Its stored
// files are removed once the rows are gone.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	companyID := chi.URLParam(r, "companyID")

	c, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	if c.CreatedBy != userID {
		httpx.Error(w, h.log, ErrNotCreator, statusFor)
		return
	}
	keys, err := h.files.Keys(r.Context(), companyID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	if err := h.companies.Delete(r.Context(), companyID); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	h.removeFiles(companyID, keys)

	if selected, err := h.selection.Selected(r.Context(), userID); err == nil && selected == companyID {
		if err := h.selection.Clear(r.Context(), userID); err != nil {
			h.log.Warn("clearing selection of deleted company", zap.Error(err))
		}
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("company.deleted"),
		eventlogger.WithData(map[string]string{"company_id": companyID}),
		eventlogger.WithActor(userID, companyID),
	))

	httpx.NoContent(w)
}

// removeFiles runs detached from the request; failures are only logged.
func (h *Handler) removeFiles(companyID string, keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := h.files.Delete(ctx, key); err != nil {
			h.log.Warn("removing company file", zap.String("company_id", companyID), zap.String("key", key), zap.Error(err))
		}
	}
}

// Selected returns the company the user last picked. A selection pointing at
// a company the user lost access to is cleared and reported as missing.
func (h *Handler) Selected(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	companyID, err := h.selection.Selected(r.Context(), userID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	member, err := h.companies.IsMember(r.Context(), companyID, userID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	if !member {
		if err := h.selection.Clear(r.Context(), userID); err != nil {
			h.log.Warn("clearing stale selection", zap.Error(err))
		}
		httpx.Error(w, h.log, ErrNoSelection, statusFor)
		return
	}

	c, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

type selectRequest struct {
	CompanyID string `json:"company_id" validate:"required"`
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req selectRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	member, err := h.companies.IsMember(r.Context(), req.CompanyID, userID)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	if !member {
		httpx.Error(w, h.log, ErrNotMember, statusFor)
		return
	}

	if err := h.selection.Select(r.Context(), userID, req.CompanyID); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	httpx.NoContent(w)
}

type addMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AddMember gives an existing account access to the company in the route.
// It runs behind the tenant middleware, so the caller is already a member.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	actor, companyID := middleware.Actor(r.Context())

	var req addMemberRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	invitee, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}
	if invitee == nil {
		httpx.Error(w, h.log, ErrUnknownUser, statusFor)
		return
	}

	if err := h.companies.AddMember(r.Context(), companyID, invitee.ID); err != nil {
		httpx.Error(w, h.log, err, statusFor)
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("company.member_added"),
		eventlogger.WithData(map[string]string{"user_id": invitee.ID.String()}),
		eventlogger.WithActor(actor, companyID),
	))

	httpx.JSON(w, http.StatusCreated, map[string]uuid.UUID{"user_id": invitee.ID})
}
