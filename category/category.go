// Package category is the expense taxonomy of a company: titles, each with
// a list of subcategories.
package category

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound             = errors.New("category not found")
	ErrEmptyName            = errors.New("name can't be empty")
	ErrDuplicateName        = errors.New("a category with this name already exists")
	ErrDuplicateSubcategory = errors.New("subcategory already exists")
	ErrUnknownSubcategory   = errors.New("subcategory not found")
)

type Category struct {
	ID            uuid.UUID `json:"id"`
	CompanyID     string    `json:"company_id"`
	Name          string    `json:"name"`
	Subcategories []string  `json:"subcategories"`
	CreatedAt     time.Time `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, c Category) error
	Get(ctx context.Context, companyID string, id uuid.UUID) (*Category, error)
	List(ctx context.Context, companyID string) ([]Category, error)
	Rename(ctx context.Context, companyID string, id uuid.UUID, name string) error
	AddSubcategory(ctx context.Context, companyID string, id uuid.UUID, name string) (*Category, error)
	RemoveSubcategory(ctx context.Context, companyID string, id uuid.UUID, name string) (*Category, error)
	Delete(ctx context.Context, companyID string, id uuid.UUID) error
	Subcategories(ctx context.Context, companyID, title string) ([]string, bool, error)
}

func New(companyID, name string, subcategories []string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, ErrEmptyName
	}
	c := Category{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Name:          name,
		Subcategories: []string{},
		CreatedAt:     time.Now().UTC(),
	}
	for _, s := range subcategories {
		if err := c.Add(s); err != nil {
			return Category{}, err
		}
	}
	return c, nil
}

// Add appends a subcategory. Names are compared case-insensitively.
func (c *Category) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if c.index(name) >= 0 {
		return ErrDuplicateSubcategory
	}
	c.Subcategories = append(c.Subcategories, name)
	return nil
}

func (c *Category) Remove(name string) error {
	i := c.index(strings.TrimSpace(name))
	if i < 0 {
		return ErrUnknownSubcategory
	}
	c.Subcategories = slices.Delete(c.Subcategories, i, i+1)
	return nil
}

func (c *Category) index(name string) int {
	return slices.IndexFunc(c.Subcategories, func(s string) bool {
		return strings.EqualFold(s, name)
	})
}
