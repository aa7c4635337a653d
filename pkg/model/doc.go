// Package model resolves configured model roles into live bindings.
//
// Each role (completion, chat, embedding) is configured with exactly one
// variant. HTTP variants are handed to the binding factory; Local variants are
// representable in configuration but cannot be served and fail resolution
// with ErrUnsupportedModel. An unconfigured role resolves to a nil handle,
// which callers treat as an absent capability rather than an error.
//
// Resolution never retries. Errors from the binding factory are returned
// unchanged so the serve command can report the role that failed.
package model
