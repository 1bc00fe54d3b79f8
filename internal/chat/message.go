// ABOUTME: Message and Session types for coven-chat conversations
// ABOUTME: Defines roles, JSON layout, identifier generation, and title derivation

package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Role identifies who authored a message
type Role string

// Role constants
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Title constants
const (
	UntitledTitle  = "New Chat"
	maxTitleLength = 50
	titleEllipsis  = "..."
)

// Message is one turn in a conversation. Assistant content grows while a
// response streams in; ID and Role never change once created.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a titled, ordered sequence of messages with its own identity
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// Summary is the listing view of an archived session
type Summary struct {
	ID           string
	Title        string
	Timestamp    time.Time
	MessageCount int
}

// NewID returns a collision-resistant identifier. UUIDv7 embeds a
// millisecond timestamp followed by random bits, so IDs created in rapid
// succession stay distinct and sort by creation time.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewMessage creates a message stamped with a fresh ID and the current time
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Title derives a session title from the first user message. Titles longer
// than 50 characters are cut to 47 plus "...".
func Title(messages []Message) string {
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if utf8.RuneCountInString(content) <= maxTitleLength {
			return content
		}
		runes := []rune(content)
		return string(runes[:maxTitleLength-len(titleEllipsis)]) + titleEllipsis
	}
	return UntitledTitle
}

// NewSession snapshots messages into a session titled from its content
func NewSession(id string, messages []Message) Session {
	return Session{
		ID:        id,
		Title:     Title(messages),
		Timestamp: time.Now(),
		Messages:  cloneMessages(messages),
	}
}

// Summary returns the listing view of s
func (s Session) Summary() Summary {
	return Summary{
		ID:           s.ID,
		Title:        s.Title,
		Timestamp:    s.Timestamp,
		MessageCount: len(s.Messages),
	}
}

// Clone returns a deep copy of s
func (s Session) Clone() Session {
	s.Messages = cloneMessages(s.Messages)
	return s
}

func cloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
