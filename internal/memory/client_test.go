package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"broker-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreatePeer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/peers", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(Peer{ID: body["id"].(string)})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "key-1"}
	peer, err := c.GetOrCreatePeer(context.Background(), "user-42")
	require.NoError(t, err)
	assert.Equal(t, "user-42", peer.ID)
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		json.NewEncoder(w).Encode(Session{ID: "sess-1", PeerID: "peer-1"})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	session, err := c.CreateSession(context.Background(), "peer-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
}

func TestAddMessages(t *testing.T) {
	var gotPath string
	var gotBody map[string][]Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	err := c.AddMessages(context.Background(), "sess-1", []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1/sessions/sess-1/messages", gotPath)
	assert.Len(t, gotBody["messages"], 2)
}

func TestProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	_, err := c.GetOrCreatePeer(context.Background(), "user-42")
	require.Error(t, err)
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "memory", pe.Provider)
}

func TestNoBaseURL(t *testing.T) {
	c := &Client{}
	err := c.AddMessages(context.Background(), "sess-1", nil)
	require.Error(t, err)
	var pe *domain.ProviderError
	assert.ErrorAs(t, err, &pe)
}
