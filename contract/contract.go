// Package contract stores company contracts with optional NDA and contract
// file attachments kept in object storage.
package contract

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/billbatista/acasinha-finance/listing"
	"github.com/google/uuid"
)

// MaxFileSize caps each uploaded attachment.
const MaxFileSize = 10 << 20

type Kind string

const (
	KindNDA      Kind = "nda"
	KindContract Kind = "contract"
)

var (
	ErrNotFound     = errors.New("contract not found")
	ErrEmptyTitle   = errors.New("title can't be empty")
	ErrFileTooLarge = errors.New("files are limited to 10 MB")
)

type Contract struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   string    `json:"company_id"`
	Title       string    `json:"title"`
	NDAKey      *string   `json:"nda_key,omitempty"`
	ContractKey *string   `json:"contract_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Keys lists the object keys of the files attached to c.
func (c Contract) Keys() []string {
	var keys []string
	for _, k := range []*string{c.NDAKey, c.ContractKey} {
		if k != nil && *k != "" {
			keys = append(keys, *k)
		}
	}
	return keys
}

type Repository interface {
	Create(ctx context.Context, c Contract) error
	Get(ctx context.Context, companyID string, id uuid.UUID) (*Contract, error)
	List(ctx context.Context, companyID string) ([]Contract, error)
	Delete(ctx context.Context, companyID string, id uuid.UUID) error
}

// ObjectStore is the slice of object storage contracts need.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}

func New(companyID, title string) (Contract, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Contract{}, ErrEmptyTitle
	}
	return Contract{
		ID:        uuid.New(),
		CompanyID: companyID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ObjectKey places an attachment under its company and contract:
// companies/{company}/contracts/{contract}/{kind}{ext}.
func ObjectKey(companyID string, contractID uuid.UUID, kind Kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("companies", companyID, "contracts", contractID.String(), string(kind)+ext)
}

func ListOptions() listing.Options[Contract] {
	return listing.Options[Contract]{
		Fields: func(c Contract) []string {
			return []string{c.Title, c.CreatedAt.Format("2006-01-02"), c.CreatedAt.Format("02.01.2006")}
		},
		Date: func(c Contract) time.Time { return c.CreatedAt },
	}
}

// CompanyFiles reaches every file attached to a company's contracts so they
// can be removed along with the company.
type CompanyFiles struct {
	contracts Repository
	objects   ObjectStore
}

func NewCompanyFiles(contracts Repository, objects ObjectStore) *CompanyFiles {
	return &CompanyFiles{contracts: contracts, objects: objects}
}

func (f *CompanyFiles) Keys(ctx context.Context, companyID string) ([]string, error) {
	contracts, err := f.contracts.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, c := range contracts {
		keys = append(keys, c.Keys()...)
	}
	return keys, nil
}

func (f *CompanyFiles) Delete(ctx context.Context, key string) error {
	return f.objects.Delete(ctx, key)
}
