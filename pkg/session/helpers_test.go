package session_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/profile"
)

// fakeGateway delivers events synchronously, like identity.Client.
type fakeGateway struct {
	mu        sync.Mutex
	seq       uint64
	current   *identity.Subject
	listeners map[int]func(identity.Event)
	next      int
	accounts  map[string]*identity.Subject
	err       error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		seq:       1,
		listeners: make(map[int]func(identity.Event)),
		accounts:  make(map[string]*identity.Subject),
	}
}

func (g *fakeGateway) add(sub *identity.Subject) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts[sub.Email] = sub
}

func (g *fakeGateway) emit(sub *identity.Subject) {
	g.mu.Lock()
	g.seq++
	g.current = sub
	ev := identity.Event{Seq: g.seq, Subject: sub}
	g.mu.Unlock()
	g.deliver(ev)
}

// deliver hands ev to the listeners without touching the gateway state.
func (g *fakeGateway) deliver(ev identity.Event) {
	g.mu.Lock()
	fns := make([]func(identity.Event), 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (g *fakeGateway) SignUp(_ context.Context, email, _, name string) (*identity.Subject, error) {
	if g.err != nil {
		return nil, g.err
	}
	sub := &identity.Subject{ID: "id-" + email, Email: email, DisplayName: name, Provider: identity.ProviderPassword}
	g.add(sub)
	g.emit(sub)
	return sub, nil
}

func (g *fakeGateway) SignIn(_ context.Context, email, _ string) (*identity.Subject, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.mu.Lock()
	sub, ok := g.accounts[email]
	g.mu.Unlock()
	if !ok {
		return nil, &identity.Error{Code: identity.CodeUserNotFound}
	}
	g.emit(sub)
	return sub, nil
}

func (g *fakeGateway) SignInWithOAuth(_ context.Context, p identity.Provider, _ identity.Callback) (*identity.Subject, error) {
	if !identity.Supports(p) {
		return nil, &identity.Error{Code: identity.CodeNotSupported}
	}
	return nil, &identity.Error{Code: identity.CodePopupClosed}
}

func (g *fakeGateway) SignOut(context.Context) error {
	g.emit(nil)
	return nil
}

func (g *fakeGateway) OnChange(fn func(identity.Event)) func() {
	g.mu.Lock()
	id := g.next
	g.next++
	g.listeners[id] = fn
	ev := identity.Event{Seq: g.seq, Subject: g.current}
	g.mu.Unlock()
	fn(ev)
	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

var _ identity.Gateway = (*fakeGateway)(nil)

// MockStore is a testify mock of profile.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, id string) (*profile.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Record), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, id string, fields profile.Fields, merge bool) error {
	args := m.Called(ctx, id, fields, merge)
	return args.Error(0)
}

func (m *MockStore) CreateIfAbsent(ctx context.Context, rec profile.Record) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]profile.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]profile.Record), args.Error(1)
}

func (m *MockStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// blockingStore parks the first Get until release is closed.
type blockingStore struct {
	profile.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingStore(inner profile.Store) *blockingStore {
	return &blockingStore{Store: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingStore) Get(ctx context.Context, id string) (*profile.Record, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.Store.Get(ctx, id)
}
