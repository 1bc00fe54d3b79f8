// ABOUTME: HTTP handler implementing the chat endpoint wire contract
// ABOUTME: Streams a canned reply as cumulative data frames with typing-style pacing

package endpoint

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/client"
	"github.com/2389/coven-chat/internal/stream"
)

// Pacing defaults between frames
const (
	DefaultMinDelay   = 50 * time.Millisecond
	DefaultMaxDelay   = 150 * time.Millisecond
	DefaultChunkWords = 3
)

// Handler serves POST requests carrying a conversation history and
// streams back a reply selected from its catalog.
type Handler struct {
	catalog    *Catalog
	logger     *slog.Logger
	minDelay   time.Duration
	maxDelay   time.Duration
	chunkWords int
}

// Option configures a Handler
type Option func(*Handler)

// WithDelay sets the pause range between frames. Zero disables pacing.
func WithDelay(minDelay, maxDelay time.Duration) Option {
	return func(h *Handler) {
		h.minDelay = minDelay
		h.maxDelay = maxDelay
	}
}

// WithChunkWords sets how many words each frame adds
func WithChunkWords(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.chunkWords = n
		}
	}
}

// NewHandler creates a handler. Pass nil catalog for the built-in replies
// and nil logger for default.
func NewHandler(catalog *Catalog, logger *slog.Logger, opts ...Option) *Handler {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		catalog:    catalog,
		logger:     logger.With("component", "endpoint"),
		minDelay:   DefaultMinDelay,
		maxDelay:   DefaultMaxDelay,
		chunkWords: DefaultChunkWords,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req client.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("invalid request body", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	lastUser, ok := lastUserMessage(req.Messages)
	if !ok {
		sendJSONError(w, http.StatusBadRequest, "No user message found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	reply := h.catalog.Select(lastUser)
	chunks := Chunks(reply, h.chunkWords)

	h.logger.Info("streaming reply",
		"session_id", req.SessionID,
		"history", len(req.Messages),
		"frames", len(chunks))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	id := "msg_" + uuid.NewString()
	for i, content := range chunks {
		data, err := stream.Encode(stream.Frame{
			ID:      id,
			Role:    "assistant",
			Content: content,
			Done:    i == len(chunks)-1,
		})
		if err != nil {
			h.logger.Error("failed to encode frame", "error", err)
			return
		}
		if _, err := w.Write(data); err != nil {
			h.logger.Debug("client went away", "session_id", req.SessionID, "error", err)
			return
		}
		flusher.Flush()

		if !h.pause(r.Context()) {
			h.logger.Debug("request cancelled mid-stream", "session_id", req.SessionID)
			return
		}
	}
}

// pause waits one pacing interval and reports whether ctx is still live
func (h *Handler) pause(ctx context.Context) bool {
	d := h.minDelay
	if h.maxDelay > h.minDelay {
		d += rand.N(h.maxDelay - h.minDelay)
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Chunks splits text on spaces and returns the cumulative text after the
// first word, after every n-th word following it, and after the last word.
// Joining is lossless: the final chunk equals text.
func Chunks(text string, n int) []string {
	if n <= 0 {
		n = DefaultChunkWords
	}
	words := strings.Split(text, " ")
	var out []string
	var b strings.Builder
	for i, word := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		if i%n == 0 || i == len(words)-1 {
			out = append(out, b.String())
		}
	}
	return out
}

func lastUserMessage(messages []client.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content, true
		}
	}
	return "", false
}

// sendJSONError writes a JSON error response with the given status code.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// NewMux routes the chat handler at path and adds a /health probe
func NewMux(path string, h http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	return mux
}
