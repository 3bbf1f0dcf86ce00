// Package session persists conversations between CLI invocations so a prompt
// can continue where the last one left off.
package session

import (
	"sync"
	"time"

	"github.com/codefionn/chatschnell/internal/orchestrator"
)

// Session is one named conversation: an ordered list of turns plus metadata.
// Safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	ID        string
	Title     string
	Turns     []*orchestrator.Turn
	CreatedAt time.Time
	UpdatedAt time.Time

	dirty bool
}

// NewSession creates an empty session. An empty id gets a generated word ID.
func NewSession(id string) *Session {
	if id == "" {
		id = GenerateWordID()
	}
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddTurn appends a turn to the conversation.
func (s *Session) AddTurn(turn *orchestrator.Turn) {
	if turn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Turns = append(s.Turns, turn)
	s.UpdatedAt = time.Now()
	s.dirty = true
}

// History returns a copy of the turn list for use as orchestrator history.
func (s *Session) History() []*orchestrator.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*orchestrator.Turn, len(s.Turns))
	copy(out, s.Turns)
	return out
}

// UserTurnCount reports how many turns the user contributed.
func (s *Session) UserTurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, turn := range s.Turns {
		if turn.Sender == orchestrator.SenderUser {
			count++
		}
	}
	return count
}

// SetTitle sets the human-readable session title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Title == title {
		return
	}
	s.Title = title
	s.dirty = true
}

// IsDirty reports whether the session changed since the last save.
func (s *Session) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Session) markSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}
