package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

// Manager applies the embedded schema migrations with goose.
type Manager struct {
	provider *goose.Provider
	locking  bool
	verbose  bool
}

// Option configures Manager.
type Option func(*Manager)

// WithoutLock disables the Postgres advisory lock taken around migrations.
func WithoutLock() Option {
	return func(m *Manager) {
		m.locking = false
	}
}

// WithVerbose makes goose log every applied file.
func WithVerbose(v bool) Option {
	return func(m *Manager) {
		m.verbose = v
	}
}

// NewManager constructs a Manager over fsys, which must hold the numbered
// SQL files at its root.
func NewManager(db *sql.DB, fsys fs.FS, opts ...Option) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migrate: nil db")
	}
	m := &Manager{locking: true}
	for _, opt := range opts {
		opt(m)
	}

	var popts []goose.ProviderOption
	if m.locking {
		locker, err := lock.NewPostgresSessionLocker()
		if err != nil {
			return nil, fmt.Errorf("migrate: session locker: %w", err)
		}
		popts = append(popts, goose.WithSessionLocker(locker))
	}
	if m.verbose {
		popts = append(popts, goose.WithVerbose(true))
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys, popts...)
	if err != nil {
		return nil, fmt.Errorf("migrate: provider: %w", err)
	}
	m.provider = provider
	return m, nil
}

// Up applies all pending migrations and returns the versions it ran.
func (m *Manager) Up(ctx context.Context) ([]int64, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	applied := make([]int64, 0, len(results))
	for _, res := range results {
		if res.Source != nil {
			applied = append(applied, res.Source.Version)
		}
	}
	return applied, nil
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) (int64, error) {
	res, err := m.provider.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate down: %w", err)
	}
	if res == nil || res.Source == nil {
		return 0, nil
	}
	return res.Source.Version, nil
}

// Status reports one line per known migration.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	return formatStatus(statuses), nil
}

// Pending reports whether any migration has not been applied yet.
func (m *Manager) Pending(ctx context.Context) (bool, error) {
	return m.provider.HasPending(ctx)
}

// Versions lists the versions of every migration source in order.
func (m *Manager) Versions() []int64 {
	sources := m.provider.ListSources()
	out := make([]int64, 0, len(sources))
	for _, src := range sources {
		out = append(out, src.Version)
	}
	return out
}

func formatStatus(statuses []*goose.MigrationStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if st == nil || st.Source == nil {
			continue
		}
		applied := "pending"
		if st.State == goose.StateApplied {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, fmt.Sprintf("%05d %s %s", st.Source.Version, applied, path.Base(st.Source.Path)))
	}
	return out
}
