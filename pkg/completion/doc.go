// Package completion implements the code completion service behind
// /v1/completions.
//
// A request carries the text around the cursor. The service trims it to the
// configured input budget, optionally prepends related snippets from the
// code index as comments, renders the model's fill-in-the-middle template and
// sends the result to the completion binding. Every completion is recorded
// as a "completion" event.
package completion
