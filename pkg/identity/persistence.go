package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SignIn is what Persistence remembers about a browser's sign-in.
type SignIn struct {
	SubjectID     string   `json:"sub"`
	Provider      Provider `json:"provider"`
	EmailVerified bool     `json:"email_verified"`
}

// Persistence remembers the sign-in of a browser session so a fresh Client
// can restore it. Load returns nil, nil when nothing is stored.
type Persistence interface {
	Load(ctx context.Context, key string) (*SignIn, error)
	Save(ctx context.Context, key string, s SignIn) error
	Clear(ctx context.Context, key string) error
}

// MemoryPersistence keeps sign-ins in a map.
type MemoryPersistence struct {
	mu   sync.RWMutex
	data map[string]SignIn
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string]SignIn)}
}

func (p *MemoryPersistence) Load(_ context.Context, key string) (*SignIn, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.data[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (p *MemoryPersistence) Save(_ context.Context, key string, s SignIn) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = s
	return nil
}

func (p *MemoryPersistence) Clear(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}

// DefaultPersistencePrefix namespaces RedisPersistence keys.
const DefaultPersistencePrefix = "hubauth:signin:"

// RedisPersistence stores sign-ins as JSON with a sliding TTL.
type RedisPersistence struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisPersistence(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisPersistence {
	if prefix == "" {
		prefix = DefaultPersistencePrefix
	}
	return &RedisPersistence{client: client, prefix: prefix, ttl: ttl}
}

func (p *RedisPersistence) Load(ctx context.Context, key string) (*SignIn, error) {
	var (
		raw []byte
		err error
	)
	if p.ttl > 0 {
		raw, err = p.client.GetEx(ctx, p.prefix+key, p.ttl).Bytes()
	} else {
		raw, err = p.client.Get(ctx, p.prefix+key).Bytes()
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s SignIn
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *RedisPersistence) Save(ctx context.Context, key string, s SignIn) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.prefix+key, raw, p.ttl).Err()
}

func (p *RedisPersistence) Clear(ctx context.Context, key string) error {
	return p.client.Del(ctx, p.prefix+key).Err()
}

var (
	_ Persistence = (*MemoryPersistence)(nil)
	_ Persistence = (*RedisPersistence)(nil)
)
