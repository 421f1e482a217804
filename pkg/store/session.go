package store

import (
	"sync"

	"ash-assistant-be/pkg/llm"
)

// Session represents one logical conversation held in memory. The on-disk
// transcript persists independently; the in-memory copy lives only for the
// process lifetime.
//
// Commits run on background goroutines while HTTP handlers read the same
// session, so all access after construction goes through the methods below.
type Session struct {
	ID    string `json:"id"`
	Model string `json:"model"`

	mu      sync.RWMutex
	modeKey string // last classified prompt mode

	// Ordered turns. Once a turn is committed the slice is only ever
	// appended to, never reordered or edited.
	messages []llm.Message

	lastQuery string
}

// NewSession returns a session seeded with any messages restored from disk.
func NewSession(id, model string, messages []llm.Message) *Session {
	return &Session{
		ID:       id,
		Model:    model,
		messages: messages,
	}
}

// CommitTurn appends a completed user/assistant exchange.
func (s *Session) CommitTurn(userContent, assistantContent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages,
		llm.Message{Role: llm.RoleUser, Content: userContent},
		llm.Message{Role: llm.RoleAssistant, Content: assistantContent},
	)
}

// Messages returns a copy of the committed turns.
func (s *Session) Messages() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// MessageCount reports how many committed messages the session holds.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// SetLastPrompt records the most recent query and its classified mode.
func (s *Session) SetLastPrompt(query, modeKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = query
	s.modeKey = modeKey
}

// LastPrompt returns the most recent query and its classified mode.
func (s *Session) LastPrompt() (query, modeKey string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQuery, s.modeKey
}
