// Package store owns the on-device SQLite database: opening it, applying
// schema migrations, and handing out the entity repositories. The mobile
// process is the sole writer; no other process touches the file.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/verifield/fieldsync/internal/agent/migrations"
	"github.com/verifield/fieldsync/internal/agent/repositories/attachments"
	"github.com/verifield/fieldsync/internal/agent/repositories/cases"
	"github.com/verifield/fieldsync/internal/agent/repositories/conflicts"
	"github.com/verifield/fieldsync/internal/agent/repositories/forms"
	"github.com/verifield/fieldsync/internal/agent/repositories/metrics"
	"github.com/verifield/fieldsync/internal/agent/repositories/notifications"
	"github.com/verifield/fieldsync/internal/agent/repositories/sessions"
	"github.com/verifield/fieldsync/internal/agent/repositories/syncqueue"
	"github.com/verifield/fieldsync/internal/common"
)

// Store is the opened local database plus its repositories. Constructed by
// Open and passed explicitly to the layers above; there is no global handle.
type Store struct {
	db *sql.DB

	Cases         cases.Repository
	Forms         forms.Repository
	Attachments   attachments.Repository
	Queue         syncqueue.Repository
	Conflicts     conflicts.Repository
	Notifications notifications.Repository
	Sessions      sessions.Repository
	Metrics       metrics.Repository
}

// Open opens (or creates) the database at dsn, applies pending migrations
// and returns a ready Store. It is idempotent: calling it on an already
// migrated file is a no-op beyond the version check.
//
// Any failure is fatal: the handle is closed and no Store is returned, so
// callers can never operate on a partially initialized schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	// SQLite allows one writer; funneling everything through a single
	// connection avoids SQLITE_BUSY under concurrent repository calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", common.ErrStoreUnavailable, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", common.ErrStoreUnavailable, err)
	}

	return &Store{
		db:            db,
		Cases:         cases.NewSQLiteRepository(db),
		Forms:         forms.NewSQLiteRepository(db),
		Attachments:   attachments.NewSQLiteRepository(db),
		Queue:         syncqueue.NewSQLiteRepository(db),
		Conflicts:     conflicts.NewSQLiteRepository(db),
		Notifications: notifications.NewSQLiteRepository(db),
		Sessions:      sessions.NewSQLiteRepository(db),
		Metrics:       metrics.NewSQLiteRepository(db),
	}, nil
}

// RunMigrations applies pending schema steps from the embedded FS. The
// goose version table is the schema-version ledger; an interrupted run is
// resumed on the next call without reapplying completed steps.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// DB exposes the raw handle for transaction composition via dbx.WithTx.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }
