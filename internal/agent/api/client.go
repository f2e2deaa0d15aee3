// Package api is the agent's boundary with the backend: a Client interface
// the Sync Queue Processor replays actions through, and an HTTP
// implementation of it. Payloads stay opaque end to end.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// ReplayResult is the server's answer to a successful replay: the canonical
// entity copy and its new version, used to reconcile the local row. For
// attachment creates the server also returns a presigned UploadURL the
// processor must PUT the file bytes to.
type ReplayResult struct {
	Entity    json.RawMessage `json:"entity"`
	Version   int64           `json:"version"`
	UploadURL string          `json:"upload_url,omitempty"`
}

// ConflictError is returned when the server rejects a replay because its
// copy has diverged from the action's base version. It carries the server's
// current state verbatim for the Conflict Resolver.
type ConflictError struct {
	ServerData    json.RawMessage `json:"server_data"`
	ServerVersion int64           `json:"server_version"`
	Deleted       bool            `json:"deleted"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: server version is %d", e.ServerVersion)
}

// Client is consumed by the Sync Queue Processor and the session layer.
type Client interface {
	// Ping probes server reachability (online/offline mode watcher).
	Ping(ctx context.Context) error

	// Login exchanges agent credentials for an access token.
	Login(ctx context.Context, username, password string) (string, error)

	// Replay applies one queued mutation against the backend. It returns
	// ErrUnavailable-wrapped errors for retryable failures, *ConflictError
	// for version divergence, and plain errors for permanent rejections.
	Replay(ctx context.Context, a *models.SyncAction) (*ReplayResult, error)

	Close() error
}
