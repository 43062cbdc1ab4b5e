package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// Extractor reads one event field from the request context.
type Extractor func(ctx context.Context) (string, bool)

// Logger builds events from the request context and hands them to Storage.
type Logger struct {
	storage     Storage
	userID      Extractor
	requestID   Extractor
	ip          Extractor
	now         func() time.Time
	idGenerator func() string
}

type Option func(*Logger)

func WithUserIDExtractor(fn Extractor) Option {
	return func(l *Logger) { l.userID = fn }
}

func WithRequestIDExtractor(fn Extractor) Option {
	return func(l *Logger) { l.requestID = fn }
}

func WithIPExtractor(fn Extractor) Option {
	return func(l *Logger) { l.ip = fn }
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(l *Logger) { l.idGenerator = fn }
}

// NewLogger panics on a nil storage.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	l := &Logger{
		storage:     storage,
		now:         time.Now,
		idGenerator: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records a successful action unless an option sets another result.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	ev := l.eventFromContext(ctx)
	ev.Action = action
	ev.Result = ResultSuccess
	for _, opt := range opts {
		opt(&ev)
	}
	return l.store(ctx, ev)
}

// LogError records a failed action with err as its message.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	ev := l.eventFromContext(ctx)
	ev.Action = action
	ev.Result = ResultFailure
	if err != nil {
		ev.Error = err.Error()
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return l.store(ctx, ev)
}

func (l *Logger) store(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := l.storage.Store(ctx, ev); err != nil {
		return errors.Join(ErrFailedToStoreEvent, err)
	}
	return nil
}

func (l *Logger) eventFromContext(ctx context.Context) Event {
	ev := Event{
		ID:        l.idGenerator(),
		CreatedAt: l.now().UTC(),
	}
	if l.userID != nil {
		if v, ok := l.userID(ctx); ok {
			ev.UserID = v
		}
	}
	if l.requestID != nil {
		if v, ok := l.requestID(ctx); ok {
			ev.RequestID = v
		}
	}
	if l.ip != nil {
		if v, ok := l.ip(ctx); ok {
			ev.IP = v
		}
	}
	return ev
}
