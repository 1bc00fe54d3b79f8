// ABOUTME: Tests for message helpers
// ABOUTME: Covers title derivation, ID uniqueness, and session snapshots

package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitle(t *testing.T) {
	long := strings.Repeat("a", 60)

	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{
			name:     "no messages",
			messages: nil,
			want:     UntitledTitle,
		},
		{
			name:     "assistant only",
			messages: []Message{{Role: RoleAssistant, Content: "hello"}},
			want:     UntitledTitle,
		},
		{
			name: "first user message wins",
			messages: []Message{
				{Role: RoleAssistant, Content: "welcome"},
				{Role: RoleUser, Content: "  how much protein?  "},
				{Role: RoleUser, Content: "second"},
			},
			want: "how much protein?",
		},
		{
			name:     "exactly fifty characters kept",
			messages: []Message{{Role: RoleUser, Content: strings.Repeat("b", 50)}},
			want:     strings.Repeat("b", 50),
		},
		{
			name:     "long content truncated",
			messages: []Message{{Role: RoleUser, Content: long}},
			want:     strings.Repeat("a", 47) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.messages))
		})
	}
}

func TestTitle_CountsCharactersNotBytes(t *testing.T) {
	content := strings.Repeat("é", 51)
	title := Title([]Message{{Role: RoleUser, Content: content}})

	assert.Equal(t, strings.Repeat("é", 47)+"...", title)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewSession_CopiesMessages(t *testing.T) {
	messages := []Message{NewMessage(RoleUser, "hi")}
	s := NewSession("session-1", messages)

	messages[0].Content = "changed"

	assert.Equal(t, "session-1", s.ID)
	assert.Equal(t, "hi", s.Title)
	assert.Equal(t, "hi", s.Messages[0].Content)
	assert.Equal(t, 1, s.Summary().MessageCount)
}
