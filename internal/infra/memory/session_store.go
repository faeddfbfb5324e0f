package memory

import (
	"context"
	"sync"

	"chase-duel-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu    sync.RWMutex
	duels map[string]*app.Duel
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		duels: make(map[string]*app.Duel),
	}
}

func (s *SessionStore) Add(d *app.Duel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duels[d.ID()] = d
}

func (s *SessionStore) Get(duelID string) (*app.Duel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.duels[duelID]
	return d, ok
}

func (s *SessionStore) Delete(duelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.duels, duelID)
}

// Touch is a no-op: registered duels never expire from memory.
func (s *SessionStore) Touch(string) {}

// Live lists the registered duel IDs.
func (s *SessionStore) Live(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.duels))
	for id := range s.duels {
		ids = append(ids, id)
	}
	return ids, nil
}

// Len reports how many duels are registered.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.duels)
}
