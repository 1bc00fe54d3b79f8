// ABOUTME: Bounded archive of past conversations, most recent first
// ABOUTME: Upsert moves a session to the front, drops duplicates, and evicts the oldest past the cap

package chat

// DefaultMaxSessions is the archive cap used when none is configured
const DefaultMaxSessions = 20

// Archive is an ordered, size-bounded collection of sessions. It is not
// safe for concurrent use; the conversation manager serializes access.
type Archive struct {
	sessions []Session
	max      int
}

// NewArchive creates an archive holding at most max sessions.
// A non-positive max selects DefaultMaxSessions.
func NewArchive(max int) *Archive {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Archive{max: max}
}

// Load replaces the archive contents with sessions, keeping the first
// occurrence of each ID and truncating to the cap.
func (a *Archive) Load(sessions []Session) {
	a.sessions = nil
	seen := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if seen[s.ID] || len(s.Messages) == 0 {
			continue
		}
		seen[s.ID] = true
		a.sessions = append(a.sessions, s.Clone())
	}
	a.truncate()
}

// Upsert inserts s at the front. An existing entry with the same ID is
// removed first, and the oldest entries are dropped beyond the cap.
func (a *Archive) Upsert(s Session) {
	a.remove(s.ID)
	a.sessions = append([]Session{s.Clone()}, a.sessions...)
	a.truncate()
}

// Remove deletes the session with the given ID and reports whether it existed
func (a *Archive) Remove(id string) bool {
	return a.remove(id)
}

// Clear empties the archive
func (a *Archive) Clear() {
	a.sessions = nil
}

// Get returns a copy of the session with the given ID
func (a *Archive) Get(id string) (Session, bool) {
	for _, s := range a.sessions {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return Session{}, false
}

// List returns session summaries, most recently archived first
func (a *Archive) List() []Summary {
	out := make([]Summary, len(a.sessions))
	for i, s := range a.sessions {
		out[i] = s.Summary()
	}
	return out
}

// Sessions returns deep copies of all archived sessions in order
func (a *Archive) Sessions() []Session {
	out := make([]Session, len(a.sessions))
	for i, s := range a.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Len returns the number of archived sessions
func (a *Archive) Len() int {
	return len(a.sessions)
}

// Cap returns the maximum number of sessions the archive keeps
func (a *Archive) Cap() int {
	return a.max
}

func (a *Archive) remove(id string) bool {
	for i, s := range a.sessions {
		if s.ID == id {
			a.sessions = append(a.sessions[:i], a.sessions[i+1:]...)
			return true
		}
	}
	return false
}

func (a *Archive) truncate() {
	if len(a.sessions) > a.max {
		a.sessions = a.sessions[:a.max]
	}
}
