package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/common"
)

type staticTokens string

func (s staticTokens) Token(ctx context.Context) (string, error) { return string(s), nil }

func testAction() *models.SyncAction {
	return &models.SyncAction{
		ID: "a1", ActionType: models.ActionUpdate,
		EntityType: models.EntityCase, EntityID: "c1",
		Payload: []byte(`{"id":"c1","notes":"local"}`), BaseVersion: 3,
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewHTTPClient(srv.URL, nil)
	assert.ErrorIs(t, c.Ping(context.Background()), common.ErrUnavailable)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent1", req["username"])

		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil)
	token, err := c.Login(context.Background(), "agent1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil)
	_, err := c.Login(context.Background(), "agent1", "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestReplay_SendsPayloadVerbatimWithHeaders(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/cases/c1", r.URL.Path)
		assert.Equal(t, "3", r.Header.Get("X-Base-Version"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)

		json.NewEncoder(w).Encode(map[string]any{"entity": json.RawMessage(gotBody), "version": 4})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, staticTokens("tok"))
	result, err := c.Replay(context.Background(), testAction())
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"c1","notes":"local"}`), gotBody)
	assert.Equal(t, int64(4), result.Version)
}

func TestReplay_RouteMapping(t *testing.T) {
	tests := []struct {
		entity models.EntityType
		action models.ActionType
		method string
		path   string
	}{
		{models.EntityCase, models.ActionCreate, http.MethodPost, "/api/v1/cases"},
		{models.EntityCase, models.ActionDelete, http.MethodDelete, "/api/v1/cases/c1"},
		{models.EntityForm, models.ActionCreate, http.MethodPost, "/api/v1/forms"},
		{models.EntityAttachment, models.ActionCreate, http.MethodPost, "/api/v1/attachments"},
	}

	for _, tc := range tests {
		a := testAction()
		a.EntityType = tc.entity
		a.ActionType = tc.action
		a.EntityID = "c1"

		method, path, err := routeFor(a)
		require.NoError(t, err)
		assert.Equal(t, tc.method, method)
		assert.Equal(t, tc.path, path)
	}

	bad := testAction()
	bad.EntityType = "invoice"
	_, _, err := routeFor(bad)
	assert.Error(t, err)
}

func TestReplay_ConflictCarriesServerState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"server_data":    json.RawMessage(`{"id":"c1","notes":"server"}`),
			"server_version": 9,
			"deleted":        false,
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, staticTokens("tok"))
	_, err := c.Replay(context.Background(), testAction())

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, json.RawMessage(`{"id":"c1","notes":"server"}`), conflictErr.ServerData)
	assert.Equal(t, int64(9), conflictErr.ServerVersion)
	assert.False(t, conflictErr.Deleted)
}

func TestReplay_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, staticTokens("tok"))
	_, err := c.Replay(context.Background(), testAction())
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestReplay_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, staticTokens("stale"))
	_, err := c.Replay(context.Background(), testAction())
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestReplay_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "malformed", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, staticTokens("tok"))
	_, err := c.Replay(context.Background(), testAction())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrUnavailable)

	var conflictErr *ConflictError
	assert.False(t, errors.As(err, &conflictErr))
}
