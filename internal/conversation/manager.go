// ABOUTME: Manager owns the active conversation, the session archive, and the inactivity timer
// ABOUTME: Every mutation is serialized under one lock and written through to the durable store

package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/client"
	"github.com/2389/coven-chat/internal/store"
	"github.com/2389/coven-chat/internal/stream"
)

// Storage keys used when none are configured
const (
	DefaultMessagesKey = "coven-chat-messages"
	DefaultSessionsKey = "coven-chat-sessions"
)

// ErrorMessage is the only error text ever shown for a failed request
const ErrorMessage = "Sorry, I encountered an error. Please try again."

// persistTimeout bounds each write-through to the store
const persistTimeout = 5 * time.Second

var (
	// ErrSessionNotFound is returned when a session ID is not in the archive
	ErrSessionNotFound = errors.New("session not found")
	// ErrSuperseded is returned by Send when the conversation it was writing
	// into was replaced before the response finished
	ErrSuperseded = errors.New("conversation superseded")
	// ErrClosed is returned by operations on a closed manager
	ErrClosed = errors.New("manager closed")
)

// Fetcher opens a response stream for a request
type Fetcher interface {
	Open(ctx context.Context, req *client.Request) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, req *client.Request) (io.ReadCloser, error)

// Open calls f(ctx, req)
func (f FetcherFunc) Open(ctx context.Context, req *client.Request) (io.ReadCloser, error) {
	return f(ctx, req)
}

// Options configures a Manager. Store and Fetcher are required; everything
// else falls back to a default.
type Options struct {
	Store   store.Store
	Fetcher Fetcher
	Logger  *slog.Logger

	MessagesKey    string
	SessionsKey    string
	MaxMessages    int
	MaxSessions    int
	SessionTimeout time.Duration

	// OnSessionTimeout runs after the inactivity timer archives a
	// non-empty conversation. It is called without the manager lock held.
	OnSessionTimeout func()
}

// Manager is the public surface of the conversation subsystem
type Manager struct {
	mu sync.Mutex

	store   store.Store
	fetcher Fetcher
	logger  *slog.Logger
	events  *EventBroadcaster
	timer   *InactivityTimer

	messagesKey      string
	sessionsKey      string
	maxMessages      int
	onSessionTimeout func()

	active    *chat.Active
	archive   *chat.Archive
	sessionID string

	// gen changes whenever the active conversation is replaced or cleared.
	// A send only writes while its captured gen is still current.
	gen            uint64
	cancelInflight context.CancelFunc
	lastFailed     string
	closed         bool
}

// NewManager creates a manager, restores persisted state from the store,
// and arms the inactivity timer.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MessagesKey == "" {
		opts.MessagesKey = DefaultMessagesKey
	}
	if opts.SessionsKey == "" {
		opts.SessionsKey = DefaultSessionsKey
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = chat.DefaultMaxMessages
	}

	m := &Manager{
		store:            opts.Store,
		fetcher:          opts.Fetcher,
		logger:           logger.With("component", "conversation"),
		events:           NewEventBroadcaster(logger),
		messagesKey:      opts.MessagesKey,
		sessionsKey:      opts.SessionsKey,
		maxMessages:      opts.MaxMessages,
		onSessionTimeout: opts.OnSessionTimeout,
		active:           chat.NewActive(),
		archive:          chat.NewArchive(opts.MaxSessions),
		sessionID:        chat.NewID(),
	}
	m.timer = NewInactivityTimer(opts.SessionTimeout, m.onTimeout)

	m.restore()
	m.timer.Reset()

	m.logger.Debug("manager started",
		"session_id", m.sessionID,
		"messages", m.active.Len(),
		"archived", m.archive.Len(),
		"timeout", m.timer.Timeout())

	return m, nil
}

// Send appends text as a user message and streams the assistant reply into
// the conversation. Empty input and sends while another is in flight are
// ignored. On failure the user turn is rolled back, the error field is set
// to ErrorMessage, and the underlying error is returned for logging.
func (m *Manager) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.active.Loading() {
		m.mu.Unlock()
		return nil
	}

	m.timer.Reset()
	history := m.active.Messages()
	userMsg := chat.NewMessage(chat.RoleUser, text)
	m.active.Append(userMsg)
	m.active.SetLoading(true)
	m.active.ClearError()
	m.lastFailed = ""

	gen := m.gen
	sessionID := m.sessionID
	reqCtx, cancel := context.WithCancel(ctx)
	m.cancelInflight = cancel

	m.persistMessagesLocked()
	m.publish(Event{Type: EventMessageAppended, Message: &userMsg})
	m.publish(Event{Type: EventLoading, Loading: true})
	m.mu.Unlock()
	defer cancel()

	assistantID, err := m.stream(reqCtx, gen, sessionID, history, userMsg)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		m.logger.Debug("discarding result of superseded send", "session_id", sessionID)
		return ErrSuperseded
	}
	m.cancelInflight = nil
	m.active.SetLoading(false)

	if err != nil {
		m.rollbackLocked(userMsg, assistantID)
		m.lastFailed = text
		m.logger.Warn("send failed", "session_id", sessionID, "error", err)
		m.publish(Event{Type: EventLoading, Loading: false})
		return err
	}

	m.publish(Event{Type: EventLoading, Loading: false})
	return nil
}

// stream opens the request and applies frames to a fresh assistant
// message. It returns the assistant message ID once one was appended.
func (m *Manager) stream(ctx context.Context, gen uint64, sessionID string, history []chat.Message, userMsg chat.Message) (string, error) {
	req := &client.Request{
		Messages:  make([]client.Message, 0, len(history)+1),
		SessionID: sessionID,
	}
	for _, msg := range history {
		req.Messages = append(req.Messages, client.Message{Role: string(msg.Role), Content: msg.Content})
	}
	req.Messages = append(req.Messages, client.Message{Role: string(userMsg.Role), Content: userMsg.Content})

	body, err := m.fetcher.Open(ctx, req)
	if err != nil {
		return "", fmt.Errorf("opening stream: %w", err)
	}
	defer body.Close()

	assistant := chat.NewMessage(chat.RoleAssistant, "")
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return "", ErrSuperseded
	}
	m.active.Append(assistant)
	m.persistMessagesLocked()
	m.publish(Event{Type: EventMessageAppended, Message: &assistant})
	m.mu.Unlock()

	err = stream.Consume(ctx, body, m.logger, func(f stream.Frame) {
		m.applyFrame(gen, assistant.ID, f)
	})
	if err != nil {
		return assistant.ID, fmt.Errorf("reading stream: %w", err)
	}
	return assistant.ID, nil
}

// applyFrame overwrites the assistant content with the frame's cumulative text
func (m *Manager) applyFrame(gen uint64, assistantID string, f stream.Frame) {
	if f.Content == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	if !m.active.ReplaceContent(assistantID, f.Content) {
		return
	}
	msg, _ := m.active.Get(assistantID)
	m.persistMessagesLocked()
	m.publish(Event{Type: EventMessageUpdated, Message: &msg})
}

func (m *Manager) rollbackLocked(userMsg chat.Message, assistantID string) {
	if assistantID != "" && m.active.Remove(assistantID) {
		m.publish(Event{Type: EventMessageRemoved, Message: &chat.Message{ID: assistantID, Role: chat.RoleAssistant}})
	}
	if m.active.Remove(userMsg.ID) {
		m.publish(Event{Type: EventMessageRemoved, Message: &userMsg})
	}
	m.active.SetError(ErrorMessage)
	m.persistMessagesLocked()
	m.publish(Event{Type: EventError, Error: ErrorMessage})
}

// Retry resends the input of the last failed send. It does nothing unless
// an error is currently set.
func (m *Manager) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.active.Err() == "" || m.active.Loading() {
		m.mu.Unlock()
		return nil
	}
	text := m.lastFailed
	if text == "" {
		if last, ok := m.active.LastUser(); ok {
			text = last.Content
		}
	}
	m.mu.Unlock()

	if text == "" {
		return nil
	}
	return m.Send(ctx, text)
}

// Clear empties the active conversation and deletes its persisted record.
// The archive and the session ID are left alone.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.supersedeLocked()
	m.active.Reset()
	m.timer.Reset()
	m.persistMessagesLocked()
	m.publish(Event{Type: EventCleared})
}

// StartNewChat archives the active conversation if it has messages and
// starts an empty one with a fresh ID.
func (m *Manager) StartNewChat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.startNewChatLocked()
}

func (m *Manager) startNewChatLocked() {
	m.supersedeLocked()
	m.archiveActiveLocked()
	m.active.Reset()
	m.sessionID = chat.NewID()
	m.timer.Reset()
	m.persistMessagesLocked()
	m.publish(Event{Type: EventSessionStarted})
}

// LoadSession makes the archived session id the active conversation. The
// current conversation is archived first when it has messages.
func (m *Manager) LoadSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	target, ok := m.archive.Get(id)
	if !ok {
		return ErrSessionNotFound
	}

	m.supersedeLocked()
	m.archiveActiveLocked()
	// Archiving may have replaced the entry with the live copy, or evicted it
	if live, ok := m.archive.Get(id); ok {
		target = live
	}

	m.active.Reset()
	m.active.SetMessages(target.Messages)
	m.sessionID = target.ID
	m.timer.Reset()
	m.persistMessagesLocked()
	m.publish(Event{Type: EventSessionLoaded})

	m.logger.Debug("session loaded", "session_id", id, "messages", len(target.Messages))
	return nil
}

// DeleteSession removes a session from the archive. The active
// conversation is untouched even when id matches it.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}

	if !m.archive.Remove(id) {
		return false
	}
	m.persistArchiveLocked()
	m.publish(Event{Type: EventArchiveChanged})
	return true
}

// ClearAllSessions empties the archive and replaces the active
// conversation with a fresh empty one.
func (m *Manager) ClearAllSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.supersedeLocked()
	m.archive.Clear()
	m.active.Reset()
	m.sessionID = chat.NewID()
	m.timer.Reset()
	m.persistArchiveLocked()
	m.persistMessagesLocked()
	m.publish(Event{Type: EventArchiveChanged})
	m.publish(Event{Type: EventSessionStarted})
}

// onTimeout runs on the timer goroutine
func (m *Manager) onTimeout() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	// Re-armed by activity after this firing was scheduled
	if deadline, armed := m.timer.Deadline(); armed && time.Now().Before(deadline) {
		m.mu.Unlock()
		return
	}
	if m.active.Loading() {
		m.logger.Debug("inactivity timeout during send, re-arming", "session_id", m.sessionID)
		m.timer.Reset()
		m.mu.Unlock()
		return
	}
	if m.active.Empty() {
		m.mu.Unlock()
		return
	}

	previous := m.sessionID
	m.startNewChatLocked()
	m.publish(Event{Type: EventSessionTimeout})
	cb := m.onSessionTimeout
	m.mu.Unlock()

	m.logger.Info("session archived after inactivity", "session_id", previous)
	if cb != nil {
		cb()
	}
}

// supersedeLocked invalidates any in-flight send
func (m *Manager) supersedeLocked() {
	m.gen++
	if m.cancelInflight != nil {
		m.cancelInflight()
		m.cancelInflight = nil
	}
	if m.active.Loading() {
		m.active.SetLoading(false)
		m.publish(Event{Type: EventLoading, Loading: false})
	}
	m.lastFailed = ""
}

func (m *Manager) archiveActiveLocked() {
	if m.active.Empty() {
		return
	}
	m.archive.Upsert(chat.NewSession(m.sessionID, m.active.Messages()))
	m.persistArchiveLocked()
	m.publish(Event{Type: EventArchiveChanged})
}

// Messages returns a copy of the active conversation
func (m *Manager) Messages() []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Messages()
}

// SessionID returns the ID of the active conversation
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// IsLoading reports whether a send is in flight
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Loading()
}

// Error returns the user-facing error, or "" if none
func (m *Manager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Err()
}

// Sessions lists archived sessions, most recent first
func (m *Manager) Sessions() []chat.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.archive.List()
}

// Session returns a copy of an archived session
func (m *Manager) Session(id string) (chat.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.archive.Get(id)
}

// TimeoutDeadline reports when the active conversation will be rotated
// if nothing happens before then.
func (m *Manager) TimeoutDeadline() (time.Time, bool) {
	return m.timer.Deadline()
}

// Subscribe returns a channel of state changes that closes when ctx is
// done or the manager is closed.
func (m *Manager) Subscribe(ctx context.Context) <-chan Event {
	ch, _ := m.events.Subscribe(ctx)
	return ch
}

// Close stops the timer, aborts any in-flight send, and closes
// subscriber channels. The store is owned by the caller.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.timer.Stop()
	m.supersedeLocked()
	m.mu.Unlock()

	m.events.Close()
	return nil
}

// publish stamps the event with the active session and fans it out.
// Callers hold m.mu.
func (m *Manager) publish(e Event) {
	e.SessionID = m.sessionID
	m.events.Publish(e)
}
