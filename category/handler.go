package category

import (
	"errors"
	"net/http"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrBadID = errors.New("malformed id")

type Handler struct {
	categories Repository
	events     eventlogger.Recorder
	log        *zap.Logger
}

func NewHandler(categories Repository, events eventlogger.Recorder, log *zap.Logger) *Handler {
	return &Handler{categories: categories, events: events, log: log.Named("category")}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.Put("/", h.Rename)
		r.Delete("/", h.Delete)
		r.Post("/subcategories", h.AddSubcategory)
		r.Delete("/subcategories/{name}", h.RemoveSubcategory)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownSubcategory):
		return http.StatusNotFound
	case errors.Is(err, ErrBadID), errors.Is(err, ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateName), errors.Is(err, ErrDuplicateSubcategory):
		return http.StatusConflict
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

func categoryID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		return uuid.Nil, ErrBadID
	}
	return id, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	categories, err := h.categories.List(r.Context(), companyID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

type createRequest struct {
	Name          string   `json:"name" validate:"required,max=120"`
	Subcategories []string `json:"subcategories" validate:"max=100,dive,max=120"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	var req createRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	c, err := New(companyID, req.Name, req.Subcategories)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.categories.Create(r.Context(), c); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "category.created", c)
	httpx.JSON(w, http.StatusCreated, c)
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := categoryID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var req nameRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	if err := h.categories.Rename(r.Context(), companyID, id, req.Name); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "category.renamed", map[string]string{"category_id": id.String(), "name": req.Name})
	httpx.NoContent(w)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := categoryID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	if err := h.categories.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "category.deleted", map[string]string{"category_id": id.String()})
	httpx.NoContent(w)
}

func (h *Handler) AddSubcategory(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := categoryID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var req nameRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	c, err := h.categories.AddSubcategory(r.Context(), companyID, id, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "category.subcategory_added", map[string]string{"category_id": id.String(), "name": req.Name})
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) RemoveSubcategory(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := categoryID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	name := chi.URLParam(r, "name")

	c, err := h.categories.RemoveSubcategory(r.Context(), companyID, id, name)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.record(r, "category.subcategory_removed", map[string]string{"category_id": id.String(), "name": name})
	httpx.JSON(w, http.StatusOK, c)
}
