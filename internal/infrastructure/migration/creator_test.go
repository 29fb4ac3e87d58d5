package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/flipflop/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add wishlist table", "add_wishlist_table"},
		{"Add-Wishlist-Table", "add_wishlist_table"},
		{"add__wishlist", "add_wishlist"},
		{"Index 2 orders", "index_2_orders"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add wishlist", "Wishlist per user")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_wishlist.up.sql"), first.UpPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Wishlist per user")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "rollback")

	second, err := CreateMigration(dir, "index orders", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		nested := filepath.Join(dir, "nested", "migrations")
		_, err := CreateMigration(nested, "init", "")
		require.NoError(t, err)
		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_add_reviews.up.sql":     {Data: []byte("--")},
		"000010_add_reviews.down.sql":   {Data: []byte("--")},
		"000002_add_users.up.sql":       {Data: []byte("--")},
		"000002_add_users.down.sql":     {Data: []byte("--")},
		"000001_init.up.sql":            {Data: []byte("--")},
		"README.md":                     {Data: []byte("docs")},
		"subdir.up.sql/placeholder.sql": {Data: []byte("--")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_users", "000010_add_reviews"}, names)

	missing, err := MissingDown(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init"}, missing)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_create_identity", names[0])

	missing, err := MissingDown(migrations.FS)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
