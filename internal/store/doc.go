// Package store provides durable key/value persistence for coven-chat.
//
// # Overview
//
// The chat client keeps two records: the trailing window of the active
// conversation and the archive of past conversations. Each record is a JSON
// blob stored under its own key, and every write replaces the whole blob.
//
// # Implementations
//
//   - SQLiteStore: a single kv table. The "sqlite" driver (modernc.org/sqlite)
//     is pure Go; "sqlite3" (github.com/mattn/go-sqlite3) needs cgo.
//   - MemoryStore: map-backed, for tests and throwaway sessions.
//
// # Errors
//
// Get returns ErrNotFound for absent keys. Delete of an absent key succeeds.
// There are no cross-key transactions.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("~/.local/share/coven/chat.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.Put(ctx, "coven-chat-sessions", data); err != nil {
//	    return err
//	}
package store
