package memory

import (
	"context"
	"sync"

	"whatsapp-quiz-bot/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
// Load/Save exchange deep copies so callers can prepare transitions without
// aliasing the stored state.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.FlowSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.FlowSession),
	}
}

func (s *SessionStore) Load(_ context.Context, entityID string, isGroup bool) (*domain.FlowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[entityID]; ok {
		return sess.Clone(), nil
	}
	sess := domain.NewFlowSession(entityID, isGroup)
	s.sessions[entityID] = sess
	return sess.Clone(), nil
}

func (s *SessionStore) Save(_ context.Context, session *domain.FlowSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.EntityID] = session.Clone()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, entityID)
	return nil
}

func (s *SessionStore) Active(_ context.Context) ([]*domain.FlowSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*domain.FlowSession
	for _, sess := range s.sessions {
		if sess.State == domain.StateInQuiz || sess.State == domain.StateInAskMode {
			active = append(active, sess.Clone())
		}
	}
	return active, nil
}
