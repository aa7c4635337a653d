// Package server owns the HTTP listener lifecycle.
//
// The server does not know about routes; it serves whatever handler the
// caller built, normally api.RouteTable.Handler. Start blocks until the
// context is cancelled, SIGINT or SIGTERM arrives, or Shutdown is called,
// then drains in-flight requests for up to server.shutdown_timeout.
//
//	srv := server.NewServer(&cfg.Server, table.Handler())
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
