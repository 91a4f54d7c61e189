package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"broker-backend/internal/domain"
)

// Peer is the provider-side identity for a user.
type Peer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Session is one conversation container owned by a peer. Sessions are explicit
// values passed into each chat turn, never process-wide state.
type Session struct {
	ID     string `json:"id"`
	PeerID string `json:"peer_id"`
}

// Message mirrored into a session.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to the peer/session memory provider. Mirroring is best-effort:
// callers log AddMessages failures and move on.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

var defaultMemoryHTTP = &http.Client{Timeout: 10 * time.Second}

// httpClient never mutates the struct, so a shared Client is safe under
// concurrent turns.
func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return defaultMemoryHTTP
}

// GetOrCreatePeer returns the peer for a stable user id, creating it on first
// use.
func (c *Client) GetOrCreatePeer(ctx context.Context, userID string) (*Peer, error) {
	var peer Peer
	if err := c.do(ctx, http.MethodPost, "/v1/peers", map[string]interface{}{"id": userID}, &peer); err != nil {
		return nil, err
	}
	return &peer, nil
}

// CreateSession opens a new session for a peer.
func (c *Client) CreateSession(ctx context.Context, peerID string) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", map[string]interface{}{"peer_id": peerID}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// AddMessages mirrors messages into a session.
func (c *Client) AddMessages(ctx context.Context, sessionID string, msgs []Message) error {
	path := fmt.Sprintf("/v1/sessions/%s/messages", sessionID)
	return c.do(ctx, http.MethodPost, path, map[string]interface{}{"messages": msgs}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if c.BaseURL == "" {
		return &domain.ProviderError{Provider: "memory", Err: fmt.Errorf("MEMORY_API_URL is not set")}
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: "memory", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.ProviderError{Provider: "memory", Err: fmt.Errorf("status %d body: %s", resp.StatusCode, respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &domain.ProviderError{Provider: "memory", Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
