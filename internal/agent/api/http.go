package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/common"
)

// DefaultRequestTimeout bounds each replay attempt; a timeout is treated by
// the processor as a retryable failure, same as a network error.
const DefaultRequestTimeout = 15 * time.Second

// TokenSource supplies the bearer token for authenticated requests.
// Implemented by the session manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HTTPClient implements Client over the backend's JSON REST interface.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewHTTPClient(baseURL string, tokens TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultRequestTimeout},
		tokens:  tokens,
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %s", common.ErrUnavailable, resp.Status)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", common.ErrUnauthorized
	default:
		return "", fmt.Errorf("login failed: %s", resp.Status)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	return out.AccessToken, nil
}

// Replay maps the action onto the REST surface. The action payload is sent
// verbatim as the request body; the base version travels in a header so
// the payload stays opaque.
func (c *HTTPClient) Replay(ctx context.Context, a *models.SyncAction) (*ReplayResult, error) {
	method, path, err := routeFor(a)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(a.Payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Base-Version", strconv.FormatInt(a.BaseVersion, 10))

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		result := &ReplayResult{}
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, fmt.Errorf("failed to decode replay response: %w", err)
		}
		return result, nil

	case resp.StatusCode == http.StatusConflict:
		conflict := &ConflictError{}
		if err := json.NewDecoder(resp.Body).Decode(conflict); err != nil {
			return nil, fmt.Errorf("failed to decode conflict response: %w", err)
		}
		return nil, conflict

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, common.ErrUnauthorized

	case resp.StatusCode >= 500:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", common.ErrUnavailable, resp.Status, string(b))

	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("replay rejected: %s: %s", resp.Status, string(b))
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func routeFor(a *models.SyncAction) (method, path string, err error) {
	var base string
	switch a.EntityType {
	case models.EntityCase:
		base = "/api/v1/cases"
	case models.EntityForm:
		base = "/api/v1/forms"
	case models.EntityAttachment:
		base = "/api/v1/attachments"
	default:
		return "", "", fmt.Errorf("unknown entity type %q", a.EntityType)
	}

	switch a.ActionType {
	case models.ActionCreate:
		return http.MethodPost, base, nil
	case models.ActionUpdate:
		return http.MethodPut, base + "/" + a.EntityID, nil
	case models.ActionDelete:
		return http.MethodDelete, base + "/" + a.EntityID, nil
	default:
		return "", "", fmt.Errorf("unknown action type %q", a.ActionType)
	}
}
