// Package health aggregates component checks and host information for the
// /v1/health endpoint.
//
// Components register a CheckFunc under a stable name:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("bindings", manager.CheckHealth)
//	checker.Register("events", sink.Check)
//	report := checker.Run(ctx)
//
// A failing check marks the report degraded; it never takes the server
// down. System reports the architecture, CPU model and thread count via
// gopsutil, and accelerator devices via ghw.
package health
