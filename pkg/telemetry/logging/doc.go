// Package logging configures the process-wide slog logger.
//
// New layers two handlers over the standard JSON or text handler: one that
// attaches the request ID carried in the record's context, and, when
// redaction is enabled, one that masks bearer tokens, API keys and
// credential-named attributes before they are written.
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging, verbose))
//	if err != nil {
//	    return err
//	}
//	logger.InfoContext(ctx, "server started", "addr", addr)
//
// Components log through slog.Default().With("component", ...), so Setup
// must run before they are constructed.
package logging
