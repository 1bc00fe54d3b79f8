// ABOUTME: Write-through persistence of the active window and the archive
// ABOUTME: Store failures are logged and never reach the caller

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/store"
)

// restore loads the persisted active window and archive. Missing,
// unreadable, or malformed records are treated as absent.
func (m *Manager) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var sessions []chat.Session
	if m.readJSON(ctx, m.sessionsKey, &sessions) {
		m.archive.Load(validSessions(sessions, m.logger))
	}

	var messages []chat.Message
	if m.readJSON(ctx, m.messagesKey, &messages) {
		m.active.SetMessages(validMessages(messages, m.logger))
	}
}

func (m *Manager) readJSON(ctx context.Context, key string, v any) bool {
	data, err := m.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		m.logger.Error("failed to read persisted state", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		m.logger.Warn("ignoring malformed persisted state", "key", key, "error", err)
		return false
	}
	return true
}

func validMessages(messages []chat.Message, logger *slog.Logger) []chat.Message {
	out := make([]chat.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.ID == "" || (msg.Role != chat.RoleUser && msg.Role != chat.RoleAssistant) {
			logger.Warn("skipping invalid persisted message", "id", msg.ID, "role", msg.Role)
			continue
		}
		out = append(out, msg)
	}
	return out
}

func validSessions(sessions []chat.Session, logger *slog.Logger) []chat.Session {
	out := make([]chat.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == "" {
			logger.Warn("skipping persisted session without id")
			continue
		}
		s.Messages = validMessages(s.Messages, logger)
		if s.Title == "" {
			s.Title = chat.Title(s.Messages)
		}
		out = append(out, s)
	}
	return out
}

// persistMessagesLocked writes the trailing window of the active
// conversation, or deletes the record when the conversation is empty.
func (m *Manager) persistMessagesLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if m.active.Empty() {
		m.deleteKey(ctx, m.messagesKey)
		return
	}
	m.writeJSON(ctx, m.messagesKey, m.active.Window(m.maxMessages))
}

// persistArchiveLocked writes the whole archive, or deletes the record
// when the archive is empty.
func (m *Manager) persistArchiveLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if m.archive.Len() == 0 {
		m.deleteKey(ctx, m.sessionsKey)
		return
	}
	m.writeJSON(ctx, m.sessionsKey, m.archive.Sessions())
}

func (m *Manager) writeJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("failed to encode state", "key", key, "error", err)
		return
	}
	if err := m.store.Put(ctx, key, data); err != nil {
		m.logger.Error("failed to persist state", "key", key, "error", err)
	}
}

func (m *Manager) deleteKey(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Error("failed to delete persisted state", "key", key, "error", err)
	}
}
