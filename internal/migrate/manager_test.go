package migrate

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byund.io/internal/store/pg"
)

func TestNewManagerRequiresDB(t *testing.T) {
	_, err := NewManager(nil, pg.MigrationsFS())
	require.Error(t, err)
}

func TestEmbeddedMigrationsAreDiscovered(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m, err := NewManager(db, pg.MigrationsFS(), WithoutLock())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, m.Versions())
}

func TestVersionsAreOrdered(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"00002_second.sql": {Data: []byte("-- +goose Up\nselect 1;\n-- +goose Down\nselect 1;\n")},
		"00001_first.sql":  {Data: []byte("-- +goose Up\nselect 1;\n-- +goose Down\nselect 1;\n")},
	}
	m, err := NewManager(db, fsys, WithoutLock())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, m.Versions())
}

func TestFormatStatus(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lines := formatStatus([]*goose.MigrationStatus{
		{State: goose.StateApplied, AppliedAt: at, Source: &goose.Source{Path: "migrations/00001_init.sql", Version: 1}},
		{State: goose.StatePending, Source: &goose.Source{Path: "00002_more.sql", Version: 2}},
		nil,
	})
	assert.Equal(t, []string{
		"00001 2025-03-01T12:00:00Z 00001_init.sql",
		"00002 pending 00002_more.sql",
	}, lines)
}
