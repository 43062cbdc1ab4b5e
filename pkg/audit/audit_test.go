package audit_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/componenthub/hubauth/pkg/audit"
)

type ctxKey string

func extract(key ctxKey) audit.Extractor {
	return func(ctx context.Context) (string, bool) {
		v, ok := ctx.Value(key).(string)
		return v, ok
	}
}

type failingStorage struct{}

func (failingStorage) Store(context.Context, audit.Event) error { return errors.New("disk full") }

func TestLogger_Log(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := audit.NewMemoryStorage()
	log := audit.NewLogger(store,
		audit.WithUserIDExtractor(extract("user")),
		audit.WithRequestIDExtractor(extract("req")),
		audit.WithIPExtractor(extract("ip")),
		audit.WithClock(func() time.Time { return now }),
		audit.WithIDGenerator(func() string { return "ev-1" }),
	)

	ctx := context.WithValue(context.Background(), ctxKey("user"), "admin-1")
	ctx = context.WithValue(ctx, ctxKey("req"), "req-1")
	ctx = context.WithValue(ctx, ctxKey("ip"), "203.0.113.1")

	require.NoError(t, log.Log(ctx, audit.ActionRoleChange,
		audit.WithResource("user", "u-2"),
		audit.WithMetadata("role", "admin"),
	))

	events := store.Events(audit.ActionRoleChange)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "ev-1", ev.ID)
	assert.Equal(t, "admin-1", ev.UserID)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, "203.0.113.1", ev.IP)
	assert.Equal(t, "user", ev.Resource)
	assert.Equal(t, "u-2", ev.ResourceID)
	assert.Equal(t, audit.ResultSuccess, ev.Result)
	assert.Equal(t, map[string]any{"role": "admin"}, ev.Metadata)
	assert.Equal(t, now, ev.CreatedAt)
}

func TestLogger_LogError(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage()
	log := audit.NewLogger(store)

	require.NoError(t, log.LogError(context.Background(), audit.ActionSignIn,
		errors.New("auth/wrong-password"), audit.WithUser("u-1")))

	events := store.Events("")
	require.Len(t, events, 1)
	assert.Equal(t, audit.ResultFailure, events[0].Result)
	assert.Equal(t, "auth/wrong-password", events[0].Error)
	assert.Equal(t, "u-1", events[0].UserID)
	assert.NotEmpty(t, events[0].ID)
}

func TestLogger_Errors(t *testing.T) {
	t.Parallel()

	err := audit.NewLogger(audit.NewMemoryStorage()).Log(context.Background(), "")
	require.ErrorIs(t, err, audit.ErrEventValidation)

	err = audit.NewLogger(failingStorage{}).Log(context.Background(), audit.ActionSignOut)
	require.ErrorIs(t, err, audit.ErrFailedToStoreEvent)

	assert.Panics(t, func() { audit.NewLogger(nil) })
}

func TestSlogStorage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	store := audit.NewSlogStorage(slog.New(slog.NewJSONHandler(&buf, nil)))
	log := audit.NewLogger(store)

	require.NoError(t, log.LogError(context.Background(), audit.ActionSignUp, errors.New("auth/email-already-in-use")))
	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"action":"auth.sign_up"`)
	assert.Contains(t, out, `"error":"auth/email-already-in-use"`)

	require.ErrorIs(t, audit.NewSlogStorage(nil).Store(context.Background(), audit.Event{}), audit.ErrStorageNotAvailable)
}
