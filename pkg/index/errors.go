package index

import (
	"errors"
	"fmt"
)

// ErrIndexNotFound is returned when no index has been built in the
// configured directory yet.
var ErrIndexNotFound = errors.New("index not found")

// IndexError describes a failed index operation.
type IndexError struct {
	Op   string // "open", "search", "build", ...
	Path string
	Err  error
}

func (e *IndexError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("index %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}
