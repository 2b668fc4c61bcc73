package company

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme", "acme"},
		{"Şeker Gıda Ltd. Şti.", "seker-gida-ltd-sti"},
		{"  İstanbul   Çiçekçilik ", "istanbul-cicekcilik"},
		{"Öz Üretim 2024", "oz-uretim-2024"},
		{"Café Crème", "cafe-creme"},
		{"---", "company"},
		{"", "company"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.name))
		})
	}
}

func TestNextSlug(t *testing.T) {
	assert.Equal(t, "acme", NextSlug("acme", nil))
	assert.Equal(t, "acme", NextSlug("acme", []string{"acme-2"}))
	assert.Equal(t, "acme-2", NextSlug("acme", []string{"acme"}))
	assert.Equal(t, "acme-4", NextSlug("acme", []string{"acme", "acme-2", "acme-3", "acme-5"}))
}

func TestNewCompany(t *testing.T) {
	_, err := NewCompany("   ", uuid.New())
	assert.ErrorIs(t, err, ErrEmptyName)

	creator := uuid.New()
	c, err := NewCompany(" Kuzey Yapı ", creator)
	require.NoError(t, err)
	assert.Equal(t, "kuzey-yapi", c.ID)
	assert.Equal(t, "Kuzey Yapı", c.Name)
	assert.Equal(t, creator, c.CreatedBy)
}
