package index

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/philippgille/chromem-go"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/providers"
)

const (
	codeCollection = "code"
	docsCollection = "docs"

	vectorsDir  = "vectors"
	catalogFile = "catalog.db"

	reloadDebounce = 200 * time.Millisecond
)

// Reader is an open, read-only view of one index generation.
type Reader struct {
	Generation *Generation

	code *chromem.Collection
	docs *chromem.Collection
}

// ReaderProvider lazily opens the index and hands the same Reader to every
// consumer until a new generation is published. It is shared by code search
// and doc search.
type ReaderProvider struct {
	dir      string
	compress bool
	embed    chromem.EmbeddingFunc
	logger   *slog.Logger

	mu     sync.RWMutex
	reader *Reader

	watchOnce sync.Once
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewReaderProvider creates a provider for the index in cfg.Dir, embedding
// queries with embedding. Nothing is opened until the first Reader call.
func NewReaderProvider(cfg config.IndexConfig, embedding providers.Embedding) *ReaderProvider {
	return &ReaderProvider{
		dir:      cfg.Dir,
		compress: cfg.Compress,
		embed:    embedFunc(embedding),
		logger:   slog.Default().With("component", "index.reader"),
	}
}

// ErrNoEmbedding is returned when the index is used without an embedding
// model.
var ErrNoEmbedding = errors.New("no embedding model configured")

func embedFunc(e providers.Embedding) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if e == nil {
			return nil, ErrNoEmbedding
		}
		return e.Embed(ctx, text)
	}
}

// Reader returns the current reader, opening the index on first use. It
// returns ErrIndexNotFound until an index has been built.
func (p *ReaderProvider) Reader() (*Reader, error) {
	p.mu.RLock()
	r := p.reader
	p.mu.RUnlock()
	if r != nil {
		return r, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reader != nil {
		return p.reader, nil
	}

	r, err := p.open()
	if err != nil {
		return nil, err
	}
	p.reader = r
	return r, nil
}

// Reload reopens the index if the published generation changed.
func (p *ReaderProvider) Reload() error {
	gen, err := ReadGeneration(p.dir)
	if err != nil {
		return err
	}

	p.mu.RLock()
	current := p.reader
	p.mu.RUnlock()
	if current != nil && current.Generation.ID == gen.ID {
		return nil
	}

	r, err := p.open()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.reader = r
	p.mu.Unlock()

	p.logger.Info("index reloaded",
		"generation", r.Generation.ID,
		"code_chunks", r.Generation.CodeChunks,
		"doc_chunks", r.Generation.DocChunks,
	)
	return nil
}

func (p *ReaderProvider) open() (*Reader, error) {
	gen, err := ReadGeneration(p.dir)
	if err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(filepath.Join(p.dir, vectorsDir), p.compress)
	if err != nil {
		return nil, &IndexError{Op: "open", Path: p.dir, Err: err}
	}

	code, err := db.GetOrCreateCollection(codeCollection, nil, p.embed)
	if err != nil {
		return nil, &IndexError{Op: "open", Path: p.dir, Err: err}
	}
	docs, err := db.GetOrCreateCollection(docsCollection, nil, p.embed)
	if err != nil {
		return nil, &IndexError{Op: "open", Path: p.dir, Err: err}
	}

	return &Reader{Generation: gen, code: code, docs: docs}, nil
}

// Watch reloads the index whenever the generation marker is rewritten. It
// returns once the watcher is running; cancelling ctx or Close stops it.
func (p *ReaderProvider) Watch(ctx context.Context) error {
	var startErr error
	p.watchOnce.Do(func() {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			startErr = &IndexError{Op: "watch", Path: p.dir, Err: err}
			return
		}
		if err := w.Add(p.dir); err != nil {
			w.Close()
			startErr = &IndexError{Op: "watch", Path: p.dir, Err: err}
			return
		}

		p.watcher = w
		p.stopCh = make(chan struct{})
		p.doneCh = make(chan struct{})
		go p.watchLoop(ctx)

		p.logger.Info("watching index for new generations", "dir", p.dir)
	})
	return startErr
}

func (p *ReaderProvider) watchLoop(ctx context.Context) {
	defer close(p.doneCh)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != MarkerFile || !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}

			// renameio produces several events per publish; reload once.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := p.Reload(); err != nil && !errors.Is(err, ErrIndexNotFound) {
					p.logger.Error("index reload failed", "error", err)
				}
			})

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("index watcher error", "error", err)
		}
	}
}

// Check reports whether an index is available. It backs the index health
// check.
func (p *ReaderProvider) Check(ctx context.Context) error {
	_, err := p.Reader()
	return err
}

// Close stops the watcher.
func (p *ReaderProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	select {
	case <-p.stopCh:
		return nil
	default:
		close(p.stopCh)
	}
	<-p.doneCh
	return p.watcher.Close()
}
