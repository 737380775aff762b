// Package memory holds in-memory store implementations, used in tests and
// in single-process runs without external infrastructure.
package memory

import (
	"context"
	"sync"

	"mcqbank-service/internal/domain"
)

type sessionKey struct {
	chatID int64
	seq    int
}

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[sessionKey]domain.SessionState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[sessionKey]domain.SessionState)}
}

func (s *SessionStore) Load(_ context.Context, chatID int64, seq int) (domain.SessionState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionKey{chatID, seq}]
	if ok {
		state.Scores = copyScores(state.Scores)
	}
	return state, ok, nil
}

func (s *SessionStore) Save(_ context.Context, state domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Scores = copyScores(state.Scores)
	s.sessions[sessionKey{state.ChatID, state.BundleSeq}] = state
	return nil
}

func copyScores(scores map[int64]float64) map[int64]float64 {
	if scores == nil {
		return nil
	}
	out := make(map[int64]float64, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}
