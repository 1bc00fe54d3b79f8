// ABOUTME: Tests for the endpoint HTTP client
// ABOUTME: Uses httptest servers to verify request shape, streaming bodies, and status errors

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_PostsHistoryAndSessionID(t *testing.T) {
	var got Request
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("data: {\"content\":\"hi\"}\n\n"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, nil)
	body, err := c.Open(context.Background(), &Request{
		Messages: []Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		},
		SessionID: "session-1",
	})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "session-1", got.SessionID)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "second", got.Messages[2].Content)
	assert.Contains(t, string(data), `"content":"hi"`)
}

func TestOpen_RequestJSONFieldNames(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	}))
	defer srv.Close()

	body, err := New(srv.URL, nil, nil).Open(context.Background(), &Request{
		Messages:  []Message{{Role: "user", Content: "x"}},
		SessionID: "abc",
	})
	require.NoError(t, err)
	body.Close()

	assert.Equal(t, "abc", raw["sessionId"])
	assert.Contains(t, raw, "messages")
}

func TestOpen_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"no user message found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).Open(context.Background(), &Request{SessionID: "s"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "no user message found", statusErr.Message)
}

func TestOpen_PlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).Open(context.Background(), &Request{})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "Internal Server Error", statusErr.Message)
	assert.Contains(t, err.Error(), "500")
}

func TestOpen_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, nil, nil).Open(context.Background(), &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending request")
}
