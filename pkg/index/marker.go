package index

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// MarkerFile is the name of the generation marker inside the index dir.
const MarkerFile = "generation.json"

// Generation identifies one published build of the index. Readers reopen
// the vector store whenever the marker's ID changes.
type Generation struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	CodeChunks int       `json:"code_chunks"`
	DocChunks  int       `json:"doc_chunks"`
}

// WriteGeneration atomically replaces the marker in dir.
func WriteGeneration(dir string, gen *Generation) error {
	data, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return &IndexError{Op: "write marker", Path: dir, Err: err}
	}
	if err := renameio.WriteFile(filepath.Join(dir, MarkerFile), data, 0o644); err != nil {
		return &IndexError{Op: "write marker", Path: dir, Err: err}
	}
	return nil
}

// ReadGeneration reads the marker in dir. It returns ErrIndexNotFound when
// no index has been published.
func ReadGeneration(dir string) (*Generation, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, &IndexError{Op: "read marker", Path: dir, Err: err}
	}

	var gen Generation
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, &IndexError{Op: "read marker", Path: dir, Err: err}
	}
	return &gen, nil
}
