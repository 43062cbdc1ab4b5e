package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/componenthub/hubauth/pkg/audit"
	"github.com/componenthub/hubauth/pkg/logger"
)

// Auditor records security-relevant actions; *audit.Logger satisfies it.
type Auditor interface {
	Log(ctx context.Context, action string, opts ...audit.EventOption) error
	LogError(ctx context.Context, action string, err error, opts ...audit.EventOption) error
}

// record writes one audit event. Audit failures are logged, never returned.
func record(ctx context.Context, a Auditor, log *slog.Logger, action string, success bool, code string, opts ...audit.EventOption) {
	if a == nil {
		return
	}
	var err error
	if success {
		err = a.Log(ctx, action, opts...)
	} else {
		err = a.LogError(ctx, action, errors.New(code), opts...)
	}
	if err != nil {
		log.WarnContext(ctx, "failed to record audit event",
			logger.Error(err),
			logger.Component("account"),
			slog.String("action", action),
		)
	}
}
