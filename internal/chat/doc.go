// Package chat holds the conversation data model for coven-chat.
//
// # Types
//
//   - Message: one turn, authored by the user or the assistant
//   - Session: a titled, timestamped sequence of messages
//   - Archive: past sessions, most recent first, capped (default 20)
//   - Active: the conversation being composed, with loading and error state
//
// Neither Archive nor Active is safe for concurrent use. The conversation
// manager owns both and serializes every mutation.
//
// # Identifiers
//
// NewID returns UUIDv7 strings for both messages and sessions.
//
// # Titles
//
// Title uses the first user message: trimmed, kept whole up to 50
// characters, otherwise cut to 47 characters plus "...". A conversation with
// no user message is titled "New Chat".
package chat
