package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	// Single-session device: wipe before insert instead of upserting by
	// username, so switching agents never leaves a stale row behind.
	if _, err := r.db.ExecContext(ctx, `delete from sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	query := ` INSERT INTO sessions (username, access_token, expires_at, created_at)
			values (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, s.Username, s.AccessToken, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Current(ctx context.Context) (*models.Session, error) {
	query := `select username, access_token, expires_at, created_at from sessions limit 1`
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query).Scan(&s.Username, &s.AccessToken, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `delete from sessions`)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
