package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/notesbot/core/config"
	coredatabase "github.com/m3rciful/notesbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunOrder(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")

	var steps []string
	res, err := Run(context.Background(), Options{
		Config:   &coreconfig.Config{},
		Database: coredatabase.Config{Name: "notesbot"},
		LoggerInit: func(*coreconfig.Config) error {
			steps = append(steps, "logger")
			return nil
		},
		Connect: func(_ context.Context, cfg coredatabase.Config) (*sqlx.DB, error) {
			steps = append(steps, "connect:"+cfg.Name)
			return db, nil
		},
		Migrate: func(context.Context, coredatabase.Config) error {
			steps = append(steps, "migrate")
			return nil
		},
	})
	require.NoError(t, err)
	assert.Same(t, db, res.DB)
	assert.Equal(t, []string{"logger", "connect:notesbot", "migrate"}, steps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunClosesPoolWhenMigrationsFail(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.NewDb(raw, "sqlmock"), nil
		},
		Migrate: func(context.Context, coredatabase.Config) error { return errors.New("dirty schema") },
	})
	require.ErrorContains(t, err, "dirty schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no stdout") },
	})
	assert.ErrorContains(t, err, "logger init failed")
}
