package contract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/listing"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBadID   = errors.New("malformed id")
	ErrBadForm = errors.New("expected a multipart form")
)

// Room for both attachments plus the form fields.
const maxFormBytes = 2*MaxFileSize + 1<<20

type Handler struct {
	contracts Repository
	objects   ObjectStore
	events    eventlogger.Recorder
	log       *zap.Logger
	pageSize  int
}

func NewHandler(contracts Repository, objects ObjectStore, events eventlogger.Recorder, log *zap.Logger, pageSize int) *Handler {
	return &Handler{contracts: contracts, objects: objects, events: events, log: log.Named("contract"), pageSize: pageSize}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{contractID}", h.Get)
	r.Delete("/{contractID}", h.Delete)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadID), errors.Is(err, ErrEmptyTitle), errors.Is(err, ErrBadForm):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return 0
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.Error(w, h.log, err, statusFor)
}

func contractID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		return uuid.Nil, ErrBadID
	}
	return id, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())

	contracts, err := h.contracts.List(r.Context(), companyID)
	if err != nil {
		h.fail(w, err)
		return
	}
	q := listing.ParseQuery(r.URL.Query(), h.pageSize)
	httpx.JSON(w, http.StatusOK, listing.Apply(contracts, q, ListOptions()))
}

// Create takes a multipart form with a title field and optional nda and
// contract files. Files are uploaded before the record is written; if the
// write fails the uploads are removed again.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, companyID := middleware.Actor(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, ErrFileTooLarge)
			return
		}
		h.fail(w, fmt.Errorf("%w: %v", ErrBadForm, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	c, err := New(companyID, r.FormValue("title"))
	if err != nil {
		h.fail(w, err)
		return
	}

	var uploaded []string
	for _, kind := range []Kind{KindNDA, KindContract} {
		key, err := h.attach(r, c, kind)
		if err != nil {
			h.cleanup(uploaded)
			h.fail(w, err)
			return
		}
		if key == "" {
			continue
		}
		uploaded = append(uploaded, key)
		if kind == KindNDA {
			c.NDAKey = &key
		} else {
			c.ContractKey = &key
		}
	}

	if err := h.contracts.Create(r.Context(), c); err != nil {
		h.cleanup(uploaded)
		h.fail(w, err)
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("contract.created"),
		eventlogger.WithData(c),
		eventlogger.WithActor(userID, companyID),
	))
	httpx.JSON(w, http.StatusCreated, c)
}

// attach uploads the form file named after kind, returning "" when the form
// has no such file.
func (h *Handler) attach(r *http.Request, c Contract, kind Kind) (string, error) {
	file, header, err := r.FormFile(string(kind))
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadForm, err)
	}
	defer file.Close()

	if header.Size > MaxFileSize {
		return "", ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s file: %w", kind, err)
	}
	if len(data) > MaxFileSize {
		return "", ErrFileTooLarge
	}

	key := ObjectKey(c.CompanyID, c.ID, kind, header.Filename)
	if err := h.objects.Upload(r.Context(), key, data, contentType(header)); err != nil {
		return "", err
	}
	return key, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return mime.TypeByExtension(filepath.Ext(header.Filename))
}

// cleanup removes objects that no record points to. Failures are only logged.
func (h *Handler) cleanup(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := h.objects.Delete(ctx, key); err != nil {
			h.log.Warn("removing contract file", zap.String("key", key), zap.Error(err))
		}
	}
}

type fileLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type contractResponse struct {
	*Contract
	NDA  *fileLink `json:"nda,omitempty"`
	File *fileLink `json:"contract,omitempty"`
}

// Get returns the contract with short-lived download links for its files.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	_, companyID := middleware.Actor(r.Context())
	id, err := contractID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	c, err := h.contracts.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := contractResponse{Contract: c}
	if resp.NDA, err = h.link(r.Context(), c.NDAKey); err != nil {
		h.fail(w, err)
		return
	}
	if resp.File, err = h.link(r.Context(), c.ContractKey); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) link(ctx context.Context, key *string) (*fileLink, error) {
	if key == nil || *key == "" {
		return nil, nil
	}
	url, expires, err := h.objects.PresignGet(ctx, *key)
	if err != nil {
		return nil, err
	}
	return &fileLink{URL: url, ExpiresAt: expires}, nil
}

// Delete drops the record first; its files are then removed best-effort.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, companyID := middleware.Actor(r.Context())
	id, err := contractID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	c, err := h.contracts.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.contracts.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, err)
		return
	}
	h.cleanup(c.Keys())

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("contract.deleted"),
		eventlogger.WithData(map[string]string{"contract_id": id.String(), "title": c.Title}),
		eventlogger.WithActor(userID, companyID),
	))
	httpx.NoContent(w)
}
