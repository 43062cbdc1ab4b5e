package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// MemoryStorage keeps events in process. Used in tests and single-node
// development setups.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns the stored events for action, or all of them when action
// is empty.
func (s *MemoryStorage) Events(action string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if action == "" {
		return slices.Clone(s.events)
	}
	var out []Event
	for _, ev := range s.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// SlogStorage writes events to a structured logger.
type SlogStorage struct {
	log *slog.Logger
}

func NewSlogStorage(log *slog.Logger) *SlogStorage {
	return &SlogStorage{log: log}
}

func (s *SlogStorage) Store(ctx context.Context, ev Event) error {
	if s.log == nil {
		return ErrStorageNotAvailable
	}
	level := slog.LevelInfo
	if ev.Result != ResultSuccess {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("id", ev.ID),
		slog.String("action", ev.Action),
		slog.String("result", string(ev.Result)),
	}
	for k, v := range map[string]string{
		"user_id":     ev.UserID,
		"resource":    ev.Resource,
		"resource_id": ev.ResourceID,
		"error":       ev.Error,
		"request_id":  ev.RequestID,
		"ip":          ev.IP,
	} {
		if v != "" {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	if len(ev.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", ev.Metadata))
	}
	s.log.LogAttrs(ctx, level, "audit", slog.Attr{Key: "audit", Value: slog.GroupValue(attrs...)})
	return nil
}
