// Package services builds the set of subsystems the HTTP surface is composed
// from.
//
// Assemble resolves each configured model role and wires the results in
// dependency order: embedding first, then code and documentation search on
// top of it, then completion and chat. Roles that are not configured are
// simply absent from the result; the router turns absence into degraded
// routes. Any resolution failure is fatal and nothing partially built is
// returned.
package services
