package events

import (
	"errors"
	"fmt"
)

// ErrRecorderClosed is returned when logging to a recorder that is shutting down.
var ErrRecorderClosed = errors.New("event recorder is closed")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("store", "query", "delete", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RecorderError represents an error while enqueueing an event.
type RecorderError struct {
	EventID string
	Cause   error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("recorder error [event_id=%s]: %v", e.EventID, e.Cause)
	}
	return fmt.Sprintf("recorder error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(eventID string, cause error) *RecorderError {
	return &RecorderError{
		EventID: eventID,
		Cause:   cause,
	}
}

// RetentionError represents an error during retention enforcement.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}
