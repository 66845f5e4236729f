// Package httpserver runs an http.Handler with graceful shutdown and ordered
// startup of the components the handler depends on.
//
// Components implementing Lifecycle (the session manager is one) are started
// before the listener opens and stopped in reverse order once the server has
// drained, so no request ever reaches a stopped component:
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithLifecycle(sessions),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run returns when ctx is done, on SIGINT or SIGTERM, or after Shutdown.
// Startup failures match ErrStart and drain failures match ErrShutdown.
//
// HealthCheckHandler serves liveness (no checks) and readiness (all checks
// must pass) probes.
package httpserver
