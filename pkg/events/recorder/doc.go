// Package recorder provides the asynchronous events.Logger used by the
// server.
//
// Log stamps each event with a UUID and timestamps, truncates prompt and
// output text, hashes the full prompt, and hands the event to a buffered
// channel. A single worker drains the channel into the storage backend, so
// request handlers never wait on disk I/O. When the buffer stays full for
// longer than WriteTimeout the event is dropped and an error is returned.
//
// Close drains the buffer before returning:
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
package recorder
