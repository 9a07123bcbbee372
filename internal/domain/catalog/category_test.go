package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	t.Run("creates category with valid inputs", func(t *testing.T) {
		category, err := NewCategory("Electronics", "electronics")
		require.NoError(t, err)
		require.NotNil(t, category)

		assert.Equal(t, "Electronics", category.Name)
		assert.Equal(t, "electronics", category.Slug)
		assert.NotEmpty(t, category.ID)
		assert.Equal(t, 1, category.Version)
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewCategory("", "electronics")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with empty slug", func(t *testing.T) {
		_, err := NewCategory("Electronics", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slug cannot be empty")
	})

	t.Run("fails with name too long", func(t *testing.T) {
		long := make([]byte, 101)
		for i := range long {
			long[i] = 'a'
		}
		_, err := NewCategory(string(long), "a")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed 100 characters")
	})
}

func TestCategoryRename(t *testing.T) {
	t.Run("updates name and slug and bumps version", func(t *testing.T) {
		category, err := NewCategory("Electronics", "electronics")
		require.NoError(t, err)

		err = category.Rename("Home Electronics", "home-electronics")
		require.NoError(t, err)

		assert.Equal(t, "Home Electronics", category.Name)
		assert.Equal(t, "home-electronics", category.Slug)
		assert.Equal(t, 2, category.Version)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		category, err := NewCategory("Electronics", "electronics")
		require.NoError(t, err)

		err = category.Rename("", "x")
		require.Error(t, err)
		assert.Equal(t, "Electronics", category.Name)
	})
}
