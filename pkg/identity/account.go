package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Account is a provider-side user record.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarURL    string
	PasswordHash []byte
	CreatedAt    time.Time
}

// HasPassword reports whether the account can sign in with a password.
func (a *Account) HasPassword() bool {
	return len(a.PasswordHash) > 0
}

// AccountStore persists accounts and their OAuth provider links.
// Emails are compared after NormalizeEmail.
type AccountStore interface {
	Create(ctx context.Context, acc *Account) error
	ByID(ctx context.Context, id string) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
	ByProvider(ctx context.Context, provider Provider, providerUserID string) (*Account, error)
	Link(ctx context.Context, accountID string, provider Provider, providerUserID string) error
	SetPassword(ctx context.Context, accountID string, hash []byte) error
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type providerKey struct {
	provider Provider
	userID   string
}

// MemoryAccountStore keeps accounts in maps.
type MemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
	links   map[providerKey]string
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
		links:   make(map[providerKey]string),
	}
}

func (s *MemoryAccountStore) Create(_ context.Context, acc *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := NormalizeEmail(acc.Email)
	if _, ok := s.byEmail[email]; ok {
		return ErrEmailTaken
	}
	cp := *acc
	cp.Email = email
	s.byID[acc.ID] = &cp
	s.byEmail[email] = acc.ID
	return nil
}

func (s *MemoryAccountStore) ByID(_ context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *MemoryAccountStore) ByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.get(id)
}

func (s *MemoryAccountStore) ByProvider(_ context.Context, provider Provider, providerUserID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.links[providerKey{provider, providerUserID}]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.get(id)
}

func (s *MemoryAccountStore) Link(_ context.Context, accountID string, provider Provider, providerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[accountID]; !ok {
		return ErrAccountNotFound
	}
	key := providerKey{provider, providerUserID}
	if owner, ok := s.links[key]; ok && owner != accountID {
		return ErrProviderLinked
	}
	s.links[key] = accountID
	return nil
}

func (s *MemoryAccountStore) SetPassword(_ context.Context, accountID string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	acc.PasswordHash = append([]byte(nil), hash...)
	return nil
}

func (s *MemoryAccountStore) get(id string) (*Account, error) {
	acc, ok := s.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

var _ AccountStore = (*MemoryAccountStore)(nil)
