package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionStrings(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "notes", Password: "p@ss word", Name: "notesbot"}

	assert.Equal(t, "user=notes password=p@ss word host=db port=5432 dbname=notesbot sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://notes:p%40ss%20word@db:5432/notesbot?sslmode=disable", cfg.URL())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.URL(), "sslmode=require")
}

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_notes.up.sql", "000001_init.up.sql", "000001_init.down.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	files := upFiles(dir)
	assert.Equal(t, []string{"000001_init.up.sql", "000002_notes.up.sql"}, files)
	assert.Equal(t, []string{"000002_notes.up.sql"}, between(files, 1, 2))
	assert.Empty(t, between(files, 2, 2))
	assert.Nil(t, upFiles(filepath.Join(dir, "missing")))

	abs, err := Config{MigrationsPath: dir}.Migrations()
	require.NoError(t, err)
	assert.Equal(t, dir, abs)
}
