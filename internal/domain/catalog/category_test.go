package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Žluté žabky":         "zlute-zabky",
		"  Pánské   boty!! ":  "panske-boty",
		"Kids & Baby 2024":    "kids-baby-2024",
		"---":                 "",
		"Šňůrky na boty (XL)": "snurky-na-boty-xl",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestNewCategory(t *testing.T) {
	t.Run("derives slug from name", func(t *testing.T) {
		c, err := NewCategory("Dámské žabky", "")
		require.NoError(t, err)
		assert.Equal(t, "damske-zabky", c.Slug)
		assert.True(t, c.IsActive)
		require.Len(t, c.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeCategoryCreated, c.GetDomainEvents()[0].EventType())
	})

	t.Run("normalizes explicit slug", func(t *testing.T) {
		c, err := NewCategory("Summer", "Summer Sale")
		require.NoError(t, err)
		assert.Equal(t, "summer-sale", c.Slug)
	})

	t.Run("rejects slug without letters", func(t *testing.T) {
		_, err := NewCategory("!!!", "")
		assert.Error(t, err)
	})

	t.Run("cannot be own parent", func(t *testing.T) {
		c, err := NewCategory("Men", "")
		require.NoError(t, err)
		assert.Error(t, c.SetParent(&c.ID))
		assert.NoError(t, c.SetParent(nil))
	})
}
