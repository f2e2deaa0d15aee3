// Package session manages the field agent's persisted login: exchanging
// credentials for a token, storing it across restarts, and handing it to the
// API client. Local reads and writes never require a live session; only
// replay against the backend does.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verifield/fieldsync/internal/agent/api"
	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/repositories/sessions"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/logging"
	"github.com/verifield/fieldsync/internal/timex"
)

// Manager implements api.TokenSource on top of the sessions repository.
type Manager struct {
	repo sessions.Repository
	log  logging.Logger

	// now is a test seam.
	now func() int64
}

func NewManager(repo sessions.Repository, log logging.Logger) *Manager {
	return &Manager{repo: repo, log: log, now: timex.NowMillis}
}

// Login authenticates against the backend and persists the session,
// replacing any previous one. The client is passed in rather than held:
// the API client itself uses the Manager as its TokenSource.
func (m *Manager) Login(ctx context.Context, client api.Client, username, password string) error {
	token, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	s := &models.Session{
		Username:    username,
		AccessToken: token,
		ExpiresAt:   tokenExpiry(token),
		CreatedAt:   m.now(),
	}
	if err := m.repo.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.log.Info(ctx, "logged in", "username", username)
	return nil
}

// tokenExpiry extracts the exp claim without verifying the signature. The
// client only uses it to avoid sending tokens the server would reject
// anyway; verification is the server's job.
func tokenExpiry(token string) int64 {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return 0
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.UnixMilli()
}

// Current returns the stored session, expired or not.
func (m *Manager) Current(ctx context.Context) (*models.Session, error) {
	return m.repo.Current(ctx)
}

// Valid reports whether a stored session exists and has not expired. A zero
// ExpiresAt means the token carried no exp claim and is taken at face value.
func (m *Manager) Valid(ctx context.Context) bool {
	s, err := m.repo.Current(ctx)
	if err != nil {
		return false
	}
	return s.ExpiresAt == 0 || s.ExpiresAt > m.now()
}

// Token implements api.TokenSource.
func (m *Manager) Token(ctx context.Context) (string, error) {
	s, err := m.repo.Current(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if s.ExpiresAt != 0 && s.ExpiresAt <= m.now() {
		return "", common.ErrTokenExpired
	}
	return s.AccessToken, nil
}

// Logout removes the stored session.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.repo.Delete(ctx); err != nil {
		return err
	}
	m.log.Info(ctx, "logged out")
	return nil
}
