// Package logger builds the *slog.Logger used across hubauth.
//
// New assembles a text or JSON slog.Handler from functional options and wraps
// it in a decorator that pulls request-scoped values (request id, browser
// session id) out of context.Context on every record. Attribute helpers in
// attr.go keep key names consistent between packages:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "hubauth"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "signed in",
//		logger.SubjectID(subject.ID),
//		logger.Provider(subject.Provider),
//		logger.Component("session"),
//	)
//
// Components that accept a logger default to Discard() so they stay silent
// in tests unless a logger is injected.
package logger
