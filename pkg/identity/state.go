package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore issues one-time OAuth state tokens bound to a provider.
type StateStore interface {
	Put(ctx context.Context, state string, provider Provider, ttl time.Duration) error
	// Consume returns the provider bound to state and forgets it.
	// Unknown, expired or already consumed states yield ErrStateNotFound.
	Consume(ctx context.Context, state string) (Provider, error)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type stateEntry struct {
	provider  Provider
	expiresAt time.Time
}

// MemoryStateStore keeps states in a map.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
	now    func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]stateEntry), now: time.Now}
}

func (s *MemoryStateStore) Put(_ context.Context, state string, provider Provider, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.states {
		if now.After(e.expiresAt) {
			delete(s.states, k)
		}
	}
	s.states[state] = stateEntry{provider: provider, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[state]
	delete(s.states, state)
	if !ok || s.now().After(e.expiresAt) {
		return "", ErrStateNotFound
	}
	return e.provider, nil
}

// DefaultStatePrefix namespaces RedisStateStore keys.
const DefaultStatePrefix = "hubauth:oauth_state:"

// RedisStateStore keeps states as expiring keys so any instance can finish
// the callback.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = DefaultStatePrefix
	}
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) Put(ctx context.Context, state string, provider Provider, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+state, string(provider), ttl).Err()
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (Provider, error) {
	v, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", err
	}
	return Provider(v), nil
}

var (
	_ StateStore = (*MemoryStateStore)(nil)
	_ StateStore = (*RedisStateStore)(nil)
)
