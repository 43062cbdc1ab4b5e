// Package httpserver runs the hubauth HTTP API with graceful shutdown and
// exposes liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(registry.Close),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Run returns when ctx is cancelled, typically by signal.NotifyContext.
package httpserver
