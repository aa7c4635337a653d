package completion

import (
	"errors"
	"fmt"
)

// ErrEmptyRequest is returned when a request has neither segments nor a
// prompt.
var ErrEmptyRequest = errors.New("either segments or prompt is required")

// GenerateError is returned when the model binding fails.
type GenerateError struct {
	CompletionID string
	Err          error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("completion %s failed: %v", e.CompletionID, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}
