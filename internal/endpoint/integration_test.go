// ABOUTME: End-to-end test of the conversation manager against the fake endpoint over HTTP
// ABOUTME: Exercises the client transport, frame decoding, and persistence together

package endpoint_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/client"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/endpoint"
	"github.com/2389/coven-chat/internal/store"
)

func TestManagerAgainstFakeEndpoint(t *testing.T) {
	catalog := &endpoint.Catalog{
		Default: "I am not sure about that one.",
		Rules: []endpoint.Rule{
			{Name: "greeting", Keywords: []string{"hello"}, Text: "Hello! What are we training today?"},
		},
	}
	handler := endpoint.NewHandler(catalog, nil, endpoint.WithDelay(0, 0))
	server := httptest.NewServer(endpoint.NewMux("/api/chat", handler))
	defer server.Close()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	defer st.Close()

	mgr, err := conversation.NewManager(conversation.Options{
		Store:   st,
		Fetcher: client.New(server.URL+"/api/chat", server.Client(), nil),
	})
	require.NoError(t, err)
	defer mgr.Close()

	require.NoError(t, mgr.Send(context.Background(), "hello coach"))

	messages := mgr.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello! What are we training today?", messages[1].Content)
	assert.Empty(t, mgr.Error())

	// A manager reopened on the same store sees the persisted conversation
	sessionID := mgr.SessionID()
	mgr.StartNewChat()
	require.NoError(t, mgr.Close())

	reopened, err := conversation.NewManager(conversation.Options{
		Store:   st,
		Fetcher: client.New(server.URL+"/api/chat", server.Client(), nil),
	})
	require.NoError(t, err)
	defer reopened.Close()

	session, ok := reopened.Session(sessionID)
	require.True(t, ok)
	assert.Equal(t, "hello coach", session.Title)
	assert.Len(t, session.Messages, 2)
}

func TestManagerSurfacesEndpointRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	mgr, err := conversation.NewManager(conversation.Options{
		Store:   store.NewMemoryStore(),
		Fetcher: client.New(server.URL, server.Client(), nil),
	})
	require.NoError(t, err)
	defer mgr.Close()

	err = mgr.Send(context.Background(), "anyone there?")
	require.Error(t, err)

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Empty(t, mgr.Messages())
	assert.Equal(t, conversation.ErrorMessage, mgr.Error())
}
