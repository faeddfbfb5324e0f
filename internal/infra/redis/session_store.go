package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Duels run in-process, so the store keeps a local map of them.
//   - Redis marks duel liveness (duel:session:{id} -> mode) so other
//     instances and operators can see which duels are running.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	duels  map[string]*app.Duel
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		duels:  make(map[string]*app.Duel),
	}
}

func (s *SessionStore) Add(d *app.Duel) {
	s.mu.Lock()
	s.duels[d.ID()] = d
	s.mu.Unlock()
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(d.ID()), string(d.Mode()), s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("duel_id", d.ID()).Msg("mark duel live failed")
	}
}

func (s *SessionStore) Get(duelID string) (*app.Duel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.duels[duelID]
	return d, ok
}

func (s *SessionStore) Delete(duelID string) {
	s.mu.Lock()
	_, ok := s.duels[duelID]
	delete(s.duels, duelID)
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.client.Del(context.Background(), s.key(duelID)).Err(); err != nil {
		log.Warn().Err(err).Str("duel_id", duelID).Msg("clear duel marker failed")
	}
}

// Touch pushes the liveness marker's expiry out by the store TTL.
func (s *SessionStore) Touch(duelID string) {
	s.mu.RLock()
	_, ok := s.duels[duelID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.client.Expire(context.Background(), s.key(duelID), s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("duel_id", duelID).Msg("refresh duel marker failed")
	}
}

// Live lists the duel IDs marked live in Redis, across instances.
func (s *SessionStore) Live(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(s.key("")):])
	}
	return ids, iter.Err()
}

func (s *SessionStore) key(duelID string) string {
	return "duel:session:" + duelID
}
