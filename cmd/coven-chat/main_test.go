// ABOUTME: Tests for the coven-chat command tree and REPL
// ABOUTME: Runs commands against an in-process fake endpoint and a temp SQLite store

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/endpoint"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const greeting = "Hello! What are we training today?"

func startEndpoint(t *testing.T, opts ...endpoint.Option) string {
	t.Helper()
	catalog := &endpoint.Catalog{
		Default: "I am not sure about that one.",
		Rules: []endpoint.Rule{
			{Name: "greeting", Keywords: []string{"hello"}, Text: greeting},
		},
	}
	h := endpoint.NewHandler(catalog, nil, append([]endpoint.Option{endpoint.WithDelay(0, 0)}, opts...)...)
	server := httptest.NewServer(endpoint.NewMux("/api/chat", h))
	t.Cleanup(server.Close)
	return server.URL + "/api/chat"
}

// writeConfig writes a config pointing at url with a fresh SQLite file
func writeConfig(t *testing.T, url string) string {
	t.Helper()
	return writeConfigWithTimeout(t, url, "10s")
}

func writeConfigWithTimeout(t *testing.T, url, requestTimeout string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.yaml")
	content := fmt.Sprintf(`
endpoint:
  url: %q
  request_timeout: %q
storage:
  driver: sqlite
  path: %q
session:
  timeout: "1h"
logging:
  level: error
`, url, requestTimeout, filepath.Join(dir, "chat.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCmd(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestREPL_StreamsReply(t *testing.T) {
	cfg := writeConfig(t, startEndpoint(t))

	out, err := runCmd(t, cfg, "hello there\n")
	require.NoError(t, err)

	assert.Contains(t, out, "assistant: "+greeting)
	assert.NotContains(t, out, "Sorry")
}

func TestREPL_SendsMessageAsTyped(t *testing.T) {
	cfg := writeConfig(t, startEndpoint(t))

	out, err := runCmd(t, cfg, "  hello   there  \n/history\n")
	require.NoError(t, err)

	assert.Contains(t, out, "you:   hello   there  \n")
}

func TestREPL_ReplyMayOutlastRequestTimeout(t *testing.T) {
	// Three frames with 80ms pauses take longer than the 100ms header timeout
	url := startEndpoint(t, endpoint.WithDelay(80*time.Millisecond, 80*time.Millisecond))
	cfg := writeConfigWithTimeout(t, url, "100ms")

	out, err := runCmd(t, cfg, "hello there\n")
	require.NoError(t, err)

	assert.Contains(t, out, "assistant: "+greeting)
	assert.NotContains(t, out, "Sorry")
}

func TestPrintDelta(t *testing.T) {
	var out bytes.Buffer
	r := newREPL(nil, strings.NewReader(""), &out)

	r.printDelta("Hello")
	r.printDelta("Hello")
	r.printDelta("Hello world")
	assert.Equal(t, "Hello world", out.String())

	// Text that does not extend the screen is redrawn rather than spliced
	r.printDelta("XYZWQ!")
	assert.Equal(t, "Hello world\nXYZWQ!", out.String())
}

func TestHTTPClient_BoundsHeadersOnly(t *testing.T) {
	c := newHTTPClient(time.Second)

	assert.Zero(t, c.Timeout)
	transport, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, time.Second, transport.ResponseHeaderTimeout)
}

func TestREPL_HistorySurvivesRestart(t *testing.T) {
	cfg := writeConfig(t, startEndpoint(t))

	_, err := runCmd(t, cfg, "hello there\n")
	require.NoError(t, err)

	out, err := runCmd(t, cfg, "/history\n")
	require.NoError(t, err)

	assert.Contains(t, out, "Restored 2 messages")
	assert.Contains(t, out, "you: hello there")
	assert.Contains(t, out, greeting)
}

func TestREPL_NewArchivesConversation(t *testing.T) {
	cfg := writeConfig(t, startEndpoint(t))

	out, err := runCmd(t, cfg, "hello there\n/new\n/sessions\n")
	require.NoError(t, err)

	assert.Contains(t, out, "Started a new conversation.")
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "hello there")
}

func TestREPL_UnknownCommand(t *testing.T) {
	cfg := writeConfig(t, startEndpoint(t))

	out, err := runCmd(t, cfg, "/bogus\n/quit\nhello\n")
	require.NoError(t, err)

	assert.Contains(t, out, "Unknown command /bogus")
	assert.NotContains(t, out, greeting)
}

func TestREPL_FailedSendOffersRetry(t *testing.T) {
	// Nothing listens on this port once the server is closed
	server := httptest.NewServer(nil)
	url := server.URL
	server.Close()
	cfg := writeConfig(t, url)

	out, err := runCmd(t, cfg, "hello\n/history\n")
	require.NoError(t, err)

	assert.Contains(t, out, "Sorry, I encountered an error. Please try again.")
	assert.Contains(t, out, "/retry")
	assert.Contains(t, out, "No messages yet.")
}

func TestSessionsCommands(t *testing.T) {
	cfg := writeConfig(t, startEndpoint(t))

	_, err := runCmd(t, cfg, "hello there\n/new\n")
	require.NoError(t, err)

	out, err := runCmd(t, cfg, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "hello there")

	out, err = runCmd(t, cfg, "", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "hello there")
	assert.Contains(t, out, greeting)

	out, err = runCmd(t, cfg, "", "show", "--raw", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[assistant] "+greeting)

	out, err = runCmd(t, cfg, "", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")

	out, err = runCmd(t, cfg, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved conversations.")

	_, err = runCmd(t, cfg, "", "show", "1")
	assert.Error(t, err)
}

func TestPurgeCommand(t *testing.T) {
	cfg := writeConfig(t, startEndpoint(t))

	_, err := runCmd(t, cfg, "hello there\n/new\nhello again\n")
	require.NoError(t, err)

	out, err := runCmd(t, cfg, "n\n", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = runCmd(t, cfg, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "hello there")
	assert.Contains(t, out, "Active conversation: 2 messages")

	out, err = runCmd(t, cfg, "y\n", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 conversations.")

	out, err = runCmd(t, cfg, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved conversations.")
	assert.NotContains(t, out, "Active conversation")
}

func TestResolveSession(t *testing.T) {
	sessions := []chat.Summary{
		{ID: "0190aaaa-1111"},
		{ID: "0190aaaa-2222"},
		{ID: "0190bbbb-3333"},
	}

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "index", ref: "2", want: "0190aaaa-2222"},
		{name: "full id", ref: "0190bbbb-3333", want: "0190bbbb-3333"},
		{name: "unique prefix", ref: "0190b", want: "0190bbbb-3333"},
		{name: "ambiguous prefix", ref: "0190a", wantErr: true},
		{name: "index out of range", ref: "4", wantErr: true},
		{name: "zero index", ref: "0", wantErr: true},
		{name: "no match", ref: "ffff", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSession(sessions, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
