// ABOUTME: HTTP transport for the remote chat endpoint
// ABOUTME: Posts the conversation history and hands back the streaming response body

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Message is one history entry sent to the endpoint
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the JSON body posted to the endpoint
type Request struct {
	Messages  []Message `json:"messages"`
	SessionID string    `json:"sessionId"`
}

// StatusError is returned when the endpoint answers with a non-success status
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("endpoint returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("endpoint returned status %d", e.StatusCode)
}

// maxErrorBody bounds how much of an error response is read for diagnostics
const maxErrorBody = 4096

// Client opens response streams against a single endpoint URL
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// New creates a client for the endpoint at url. Pass nil httpClient to use
// http.DefaultClient and nil logger for default.
func New(url string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    url,
		http:   httpClient,
		logger: logger.With("component", "client"),
	}
}

// URL returns the endpoint this client talks to
func (c *Client) URL() string {
	return c.url
}

// Open posts req and returns the response body for streaming. Connection
// failures and non-2xx statuses are returned as errors; the caller owns
// and must close the returned body.
func (c *Client) Open(ctx context.Context, req *Request) (io.ReadCloser, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		statusErr.Message = readErrorMessage(resp)
		c.logger.Debug("endpoint rejected request",
			"status", resp.StatusCode,
			"session_id", req.SessionID)
		return nil, statusErr
	}

	c.logger.Debug("response stream opened",
		"session_id", req.SessionID,
		"messages", len(req.Messages))
	return resp.Body, nil
}

// readErrorMessage extracts a short diagnostic from an error response.
// JSON bodies of the form {"error": "..."} yield the error field.
func readErrorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var errResp map[string]string
		if err := json.Unmarshal(data, &errResp); err == nil {
			if msg, ok := errResp["error"]; ok {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(data))
}
