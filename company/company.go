// Package company models tenants. Every finance record belongs to exactly
// one company and all queries are scoped by its id.
package company

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNotFound      = errors.New("company not found")
	ErrEmptyName     = errors.New("name can't be empty")
	ErrNotCreator    = errors.New("only the creator can delete a company")
	ErrNotMember     = errors.New("not a member of this company")
	ErrAlreadyMember = errors.New("user is already a member")
	ErrNoSelection   = errors.New("no company selected")
)

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, c Company) (Company, error)
	Get(ctx context.Context, id string) (*Company, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Company, error)
	IsMember(ctx context.Context, companyID string, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, companyID string, userID uuid.UUID) error
	Delete(ctx context.Context, id string) error
}

// SelectionStore remembers which company each user is working on.
type SelectionStore interface {
	Selected(ctx context.Context, userID uuid.UUID) (string, error)
	Select(ctx context.Context, userID uuid.UUID, companyID string) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

func NewCompany(name string, createdBy uuid.UUID) (Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Company{}, ErrEmptyName
	}
	return Company{
		ID:        Slug(name),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}

var turkish = strings.NewReplacer(
	"ı", "i", "İ", "i", "ğ", "g", "Ğ", "g", "ş", "s", "Ş", "s",
	"ç", "c", "Ç", "c", "ö", "o", "Ö", "o", "ü", "u", "Ü", "u",
)

// Slug turns a company name into its id: lowercase ASCII letters and
// digits separated by single dashes.
func Slug(name string) string {
	folded := turkish.Replace(name)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if s, _, err := transform.String(t, folded); err == nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "company"
	}
	return slug
}

// NextSlug returns base if it is free, otherwise the first free base-N
// starting at 2.
func NextSlug(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, t := range taken {
		used[t] = true
	}
	if !used[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !used[candidate] {
			return candidate
		}
	}
}
