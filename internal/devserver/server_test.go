package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/verifield/fieldsync/internal/logging"
)

func setupServer(t *testing.T) (*httptest.Server, *MemStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Users = map[string]string{"agent1": string(hash)}
	cfg.UploadDir = t.TempDir()

	store := NewMemStore()
	h := NewHandler(cfg, store, NewLocalUploader(""), logging.NewNop())

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "agent1", "password": "secret"})
	resp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.AccessToken
}

func do(t *testing.T, method, url, token string, body []byte, baseVersion string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if baseVersion != "" {
		req.Header.Set("X-Base-Version", baseVersion)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLogin_RejectsBadPassword(t *testing.T) {
	srv, _ := setupServer(t)

	body, _ := json.Marshal(map[string]string{"username": "agent1", "password": "wrong"})
	resp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReplayEndpoints_RequireToken(t *testing.T) {
	srv, _ := setupServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/cases", "", []byte(`{"id":"c1"}`), "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateUpdateDeleteFlow(t *testing.T) {
	srv, _ := setupServer(t)
	token := login(t, srv)

	// Create at version 1.
	resp := do(t, http.MethodPost, srv.URL+"/api/v1/cases", token, []byte(`{"id":"c1","notes":"a"}`), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, int64(1), created.Version)

	// Update against the right base bumps the version.
	resp = do(t, http.MethodPut, srv.URL+"/api/v1/cases/c1", token, []byte(`{"id":"c1","notes":"b"}`), "1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	assert.Equal(t, int64(2), updated.Version)

	// Delete with the current base succeeds.
	resp = do(t, http.MethodDelete, srv.URL+"/api/v1/cases/c1", token, nil, "2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdate_StaleBaseReturnsServerState(t *testing.T) {
	srv, store := setupServer(t)
	token := login(t, srv)

	store.Seed("cases", "c1", json.RawMessage(`{"id":"c1","notes":"server"}`), 5)

	resp := do(t, http.MethodPut, srv.URL+"/api/v1/cases/c1", token, []byte(`{"id":"c1","notes":"local"}`), "2")
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var rej Rejection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rej))
	assert.Equal(t, json.RawMessage(`{"id":"c1","notes":"server"}`), rej.ServerData)
	assert.Equal(t, int64(5), rej.ServerVersion)
	assert.False(t, rej.Deleted)
}

func TestUpdate_DeletedEntityConflicts(t *testing.T) {
	srv, _ := setupServer(t)
	token := login(t, srv)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/cases", token, []byte(`{"id":"c1"}`), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodDelete, srv.URL+"/api/v1/cases/c1", token, nil, "1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// An update racing the delete gets the tombstone back.
	resp = do(t, http.MethodPut, srv.URL+"/api/v1/cases/c1", token, []byte(`{"id":"c1"}`), "1")
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var rej Rejection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rej))
	assert.True(t, rej.Deleted)
}

func TestCreate_DuplicateIDConflicts(t *testing.T) {
	srv, _ := setupServer(t)
	token := login(t, srv)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/cases", token, []byte(`{"id":"c1"}`), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/cases", token, []byte(`{"id":"c1"}`), "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAttachmentCreate_ReturnsUploadURL(t *testing.T) {
	srv, _ := setupServer(t)
	token := login(t, srv)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/attachments", token, []byte(`{"id":"att-1"}`), "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "/uploads/att-1", out.UploadURL)
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("agent1", []byte("s"), time.Minute)
	require.NoError(t, err)

	username, err := GetUsernameFromToken(token, []byte("s"))
	require.NoError(t, err)
	assert.Equal(t, "agent1", username)

	_, err = GetUsernameFromToken(token, []byte("wrong"))
	assert.Error(t, err)
}

func TestLocalUpload_PersistsToUploadDir(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Users = map[string]string{"agent1": string(hash)}
	cfg.UploadDir = t.TempDir()

	h := NewHandler(cfg, NewMemStore(), NewLocalUploader(""), logging.NewNop())
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp := do(t, http.MethodPut, srv.URL+"/uploads/key-1", "", []byte("data"), "")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := os.ReadFile(filepath.Join(cfg.UploadDir, "key-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}
