package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add supplier index", "add_supplier_index"},
		{"Add-Supplier-Index", "add_supplier_index"},
		{"ADD__SUPPLIER__INDEX", "add_supplier_index"},
		{"stock movements 2", "stock_movements_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
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
	t.Run("numbers after the highest existing version", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_purchasing_schema.up.sql"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_purchasing_schema.down.sql"), nil, 0o644))

		mf, err := CreateMigration(dir, "add supplier index")
		require.NoError(t, err)

		assert.Equal(t, "000002", mf.Version)
		assert.Equal(t, filepath.Join(dir, "000002_add_supplier_index.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000002_add_supplier_index.down.sql"), mf.DownPath)

		content, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "-- Migration: add supplier index")

		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"000001_purchasing_schema", "000002_add_supplier_index"}, names)
	})

	t.Run("starts at one in an empty directory", func(t *testing.T) {
		mf, err := CreateMigration(filepath.Join(t.TempDir(), "new"), "init")
		require.NoError(t, err)
		assert.Equal(t, "000001", mf.Version)
	})

	t.Run("rejects a name without usable characters", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!")
		assert.Error(t, err)
	})
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFindPath(t *testing.T) {
	path := FindPath()
	require.NotEmpty(t, path)
	_, err := os.Stat(filepath.Join(path, "000001_purchasing_schema.up.sql"))
	assert.NoError(t, err)
}
