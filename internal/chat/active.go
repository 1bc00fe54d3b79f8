// ABOUTME: In-memory state of the conversation currently being composed
// ABOUTME: Holds messages, the loading flag, and the last user-facing error

package chat

import "strings"

// DefaultMaxMessages is the persisted window size used when none is configured
const DefaultMaxMessages = 10

// Active is the mutable state of the active conversation. It is not safe
// for concurrent use; the conversation manager serializes access.
type Active struct {
	messages []Message
	loading  bool
	err      string
}

// NewActive creates an empty active conversation
func NewActive() *Active {
	return &Active{}
}

// Append adds msg to the end of the conversation
func (a *Active) Append(msg Message) {
	a.messages = append(a.messages, msg)
}

// ReplaceContent overwrites the content of the message with the given ID.
// Streaming frames carry the full text so far, so the new content must
// extend the current content. Shrinks and rewrites are refused. Returns true
// if the content changed.
func (a *Active) ReplaceContent(id, content string) bool {
	i := a.index(id)
	if i < 0 {
		return false
	}
	old := a.messages[i].Content
	if content == old || !strings.HasPrefix(content, old) {
		return false
	}
	a.messages[i].Content = content
	return true
}

// Remove deletes the message with the given ID and reports whether it existed
func (a *Active) Remove(id string) bool {
	i := a.index(id)
	if i < 0 {
		return false
	}
	a.messages = append(a.messages[:i], a.messages[i+1:]...)
	return true
}

// Get returns a copy of the message with the given ID
func (a *Active) Get(id string) (Message, bool) {
	i := a.index(id)
	if i < 0 {
		return Message{}, false
	}
	return a.messages[i], true
}

// SetMessages replaces the whole message sequence with a copy of messages
func (a *Active) SetMessages(messages []Message) {
	a.messages = cloneMessages(messages)
}

// Reset clears messages and the error. The loading flag is left alone
// because it belongs to whichever send is in flight.
func (a *Active) Reset() {
	a.messages = nil
	a.err = ""
}

// Messages returns a copy of the message sequence
func (a *Active) Messages() []Message {
	return cloneMessages(a.messages)
}

// Window returns a copy of the trailing n messages. Non-positive n
// returns everything.
func (a *Active) Window(n int) []Message {
	if n <= 0 || len(a.messages) <= n {
		return a.Messages()
	}
	return cloneMessages(a.messages[len(a.messages)-n:])
}

// LastUser returns the most recent user message
func (a *Active) LastUser() (Message, bool) {
	for i := len(a.messages) - 1; i >= 0; i-- {
		if a.messages[i].Role == RoleUser {
			return a.messages[i], true
		}
	}
	return Message{}, false
}

// Len returns the number of messages
func (a *Active) Len() int {
	return len(a.messages)
}

// Empty reports whether the conversation has no messages
func (a *Active) Empty() bool {
	return len(a.messages) == 0
}

// Loading reports whether a send is in flight
func (a *Active) Loading() bool {
	return a.loading
}

// SetLoading sets the in-flight flag
func (a *Active) SetLoading(loading bool) {
	a.loading = loading
}

// Err returns the current user-facing error, or "" if none
func (a *Active) Err() string {
	return a.err
}

// SetError records a user-facing error
func (a *Active) SetError(msg string) {
	a.err = msg
}

// ClearError removes the current error
func (a *Active) ClearError() {
	a.err = ""
}

func (a *Active) index(id string) int {
	for i := range a.messages {
		if a.messages[i].ID == id {
			return i
		}
	}
	return -1
}
