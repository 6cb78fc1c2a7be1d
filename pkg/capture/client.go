// Package capture is a thin HTTP client for the capture/indexing provider.
// The provider is treated as an opaque remote service; only the endpoints the
// desktop client needs are wrapped.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.capturehub.io"

var (
	// ErrInvalidAPIKey is returned when the provider rejects the credential.
	ErrInvalidAPIKey = errors.New("capture: invalid api key")
	// ErrVideoNotFound is returned when a video id is unknown to the provider.
	ErrVideoNotFound = errors.New("capture: video not found")
)

// Client calls the capture provider API with one credential.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a provider client for the given API key.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(d time.Duration) { c.http.Timeout = d }

// Session is a provider-side capture session.
type Session struct {
	SessionID    string `json:"session_id"`
	CollectionID string `json:"collection_id"`
	EndUserID    string `json:"end_user_id"`
	Status       string `json:"status"`
}

// CreateSessionRequest is the body for creating a capture session.
type CreateSessionRequest struct {
	EndUserID   string            `json:"end_user_id"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SessionToken is a short-lived token the capture SDK in the renderer uses.
type SessionToken struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// VerifyKey checks the API key against the provider. A rejected key is a
// typed result, not an error; transport failures propagate.
func (c *Client) VerifyKey(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/auth/verify", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("verify key: unexpected status %d", resp.StatusCode)
	}
}

// CreateSession creates a capture session; the callback URL receives lifecycle webhooks.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	var out Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/capture/sessions", req, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &out, nil
}

// IssueSessionToken issues a short-lived client token for the capture SDK.
func (c *Client) IssueSessionToken(ctx context.Context, ttlSeconds int) (*SessionToken, error) {
	body := map[string]int{"ttl": ttlSeconds}
	var out SessionToken
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/session-token", body, &out); err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &out, nil
}

// SessionAction forwards a lifecycle action (stop, pause, resume) to a session.
func (c *Client) SessionAction(ctx context.Context, sessionID, action string) error {
	path := fmt.Sprintf("/v1/capture/sessions/%s/%s", sessionID, action)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("session %s: %w", action, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// doJSON performs a request and decodes a 2xx JSON response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidAPIKey
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
