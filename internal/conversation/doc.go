// Package conversation owns the active chat session and its archive.
//
// # Overview
//
// The Manager is the only writer of conversation state. It composes the
// in-memory types from the chat package, a durable store, a response
// fetcher, and an inactivity timer:
//
//	mgr, err := conversation.NewManager(conversation.Options{
//	    Store:   st,
//	    Fetcher: client.New(url, nil, logger),
//	})
//
// Key operations:
//
//   - Send(ctx, text): append a user turn and stream the assistant reply
//   - Retry(ctx): resend the input of a failed send
//   - Clear(): empty the active conversation
//   - StartNewChat(): archive the active conversation and start a fresh one
//   - LoadSession(id): make an archived session active
//   - DeleteSession(id): drop a session from the archive
//   - ClearAllSessions(): discard the archive and the active conversation
//
// # Streaming
//
// Each response frame carries the full assistant text so far. The manager
// replaces the assistant content on every frame rather than appending.
// A send captures a generation number when it starts; replacing or clearing
// the active conversation bumps the generation and cancels the request, so
// late frames from an abandoned send are dropped.
//
// # Persistence
//
// Two keys are written through on every change: the trailing window of the
// active conversation and the full archive. Empty state deletes the key
// instead of writing an empty array. Store failures are logged and never
// returned to callers.
//
// # Inactivity
//
// The InactivityTimer is re-armed on every user action. When it fires and
// the active conversation has messages, the manager performs the same
// transition as StartNewChat and calls Options.OnSessionTimeout. Rotation
// is postponed while a send is in flight.
//
// # Events
//
// Subscribe returns a channel of state changes for display. Publishing
// never blocks; a subscriber that falls behind misses events.
package conversation
