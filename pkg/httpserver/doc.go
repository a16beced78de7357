// Package httpserver runs the application's HTTP server with graceful
// shutdown on context cancellation or SIGINT/SIGTERM, and provides a
// liveness/readiness handler.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
package httpserver
