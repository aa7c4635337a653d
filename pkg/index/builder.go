package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/providers"
)

const (
	metaRoot      = "root"
	docChunkBytes = 1000
)

// Builder writes code and documentation chunks into the index. Readers see
// the new content only after Commit publishes a generation.
type Builder struct {
	dir        string
	chunkLines int

	code    *chromem.Collection
	docs    *chromem.Collection
	catalog *Catalog
	logger  *slog.Logger
}

// NewBuilder opens the index in cfg.Dir for writing, creating it if needed.
func NewBuilder(cfg config.IndexConfig, embedding providers.Embedding) (*Builder, error) {
	if embedding == nil {
		return nil, &IndexError{Op: "build", Path: cfg.Dir, Err: ErrNoEmbedding}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, &IndexError{Op: "build", Path: cfg.Dir, Err: err}
	}

	db, err := chromem.NewPersistentDB(filepath.Join(cfg.Dir, vectorsDir), cfg.Compress)
	if err != nil {
		return nil, &IndexError{Op: "build", Path: cfg.Dir, Err: err}
	}
	embed := embedFunc(embedding)
	code, err := db.GetOrCreateCollection(codeCollection, nil, embed)
	if err != nil {
		return nil, &IndexError{Op: "build", Path: cfg.Dir, Err: err}
	}
	docs, err := db.GetOrCreateCollection(docsCollection, nil, embed)
	if err != nil {
		return nil, &IndexError{Op: "build", Path: cfg.Dir, Err: err}
	}

	catalog, err := OpenCatalog(filepath.Join(cfg.Dir, catalogFile))
	if err != nil {
		return nil, err
	}

	chunkLines := cfg.ChunkLines
	if chunkLines <= 0 {
		chunkLines = config.DefaultIndexChunkLines
	}

	return &Builder{
		dir:        cfg.Dir,
		chunkLines: chunkLines,
		code:       code,
		docs:       docs,
		catalog:    catalog,
		logger:     slog.Default().With("component", "index.builder"),
	}, nil
}

// IndexRepository indexes the source files committed at HEAD of the git
// repository containing dir. Chunks from an earlier run over the same
// repository are replaced.
func (b *Builder) IndexRepository(ctx context.Context, dir string) (*Source, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, &IndexError{Op: "open repository", Path: dir, Err: err}
	}

	gitURL, err := originURL(repo, dir)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, &IndexError{Op: "resolve HEAD", Path: dir, Err: err}
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, &IndexError{Op: "resolve HEAD", Path: dir, Err: err}
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, &IndexError{Op: "read tree", Path: dir, Err: err}
	}

	revision := head.Hash().String()
	var docs []chromem.Document

	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		lang := DetectLanguage(f.Name)
		if lang == "" {
			return nil
		}
		if binary, err := f.IsBinary(); err != nil || binary {
			return nil
		}
		contents, err := f.Contents()
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}

		for _, c := range ChunkLines(contents, b.chunkLines) {
			line := strconv.Itoa(c.StartLine)
			docs = append(docs, chromem.Document{
				ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(gitURL+"/"+f.Name+"#"+line)).String(),
				Content: c.Body,
				Metadata: map[string]string{
					metaGitURL:    gitURL,
					metaFilepath:  f.Name,
					metaLanguage:  lang,
					metaStartLine: line,
					metaCommit:    revision,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, &IndexError{Op: "walk tree", Path: dir, Err: err}
	}

	if b.code.Count() > 0 {
		if err := b.code.Delete(ctx, map[string]string{metaGitURL: gitURL}, nil); err != nil {
			return nil, &IndexError{Op: "delete stale chunks", Path: dir, Err: err}
		}
	}
	if len(docs) > 0 {
		if err := b.code.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, &IndexError{Op: "add chunks", Path: dir, Err: err}
		}
	}

	src := &Source{
		Kind:      SourceCode,
		Location:  dir,
		GitURL:    gitURL,
		Revision:  revision,
		Documents: len(docs),
		IndexedAt: time.Now(),
	}
	if err := b.catalog.Upsert(ctx, src); err != nil {
		return nil, err
	}

	b.logger.Info("repository indexed",
		"git_url", gitURL,
		"revision", revision,
		"chunks", len(docs),
	)
	return src, nil
}

func originURL(repo *gogit.Repository, dir string) (string, error) {
	remote, err := repo.Remote("origin")
	if err == nil && len(remote.Config().URLs) > 0 {
		return NormalizeGitURL(remote.Config().URLs[0]), nil
	}
	if err != nil && !errors.Is(err, gogit.ErrRemoteNotFound) {
		return "", &IndexError{Op: "read remote", Path: dir, Err: err}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &IndexError{Op: "read remote", Path: dir, Err: err}
	}
	return NormalizeGitURL("file://" + filepath.ToSlash(abs)), nil
}

// IndexDocs indexes the HTML, Markdown and text files under dir.
func (b *Builder) IndexDocs(ctx context.Context, dir string) (*Source, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, &IndexError{Op: "index docs", Path: dir, Err: err}
	}

	var docs []chromem.Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		title, text, ok, err := readDocument(path)
		if err != nil || !ok {
			return err
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		for i, chunk := range ChunkText(text, docChunkBytes) {
			docs = append(docs, chromem.Document{
				ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(root+"/"+rel+"#"+strconv.Itoa(i))).String(),
				Content: chunk,
				Metadata: map[string]string{
					metaRoot:   root,
					metaSource: rel,
					metaTitle:  title,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, &IndexError{Op: "index docs", Path: dir, Err: err}
	}

	if b.docs.Count() > 0 {
		if err := b.docs.Delete(ctx, map[string]string{metaRoot: root}, nil); err != nil {
			return nil, &IndexError{Op: "delete stale chunks", Path: dir, Err: err}
		}
	}
	if len(docs) > 0 {
		if err := b.docs.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, &IndexError{Op: "add chunks", Path: dir, Err: err}
		}
	}

	src := &Source{
		Kind:      SourceDocs,
		Location:  root,
		Documents: len(docs),
		IndexedAt: time.Now(),
	}
	if err := b.catalog.Upsert(ctx, src); err != nil {
		return nil, err
	}

	b.logger.Info("documentation indexed", "dir", root, "chunks", len(docs))
	return src, nil
}

// readDocument extracts a title and plain text from a documentation file.
// ok is false for unsupported file types.
func readDocument(path string) (title, text string, ok bool, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".html", ".htm":
	case ".md", ".markdown", ".txt":
	default:
		return "", "", false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", false, err
	}
	defer f.Close()

	if ext == ".html" || ext == ".htm" {
		doc, err := goquery.NewDocumentFromReader(f)
		if err != nil {
			return "", "", false, fmt.Errorf("parse %s: %w", path, err)
		}
		doc.Find("script, style, nav").Remove()
		title = strings.TrimSpace(doc.Find("title").First().Text())
		if title == "" {
			title = strings.TrimSpace(doc.Find("h1").First().Text())
		}
		text = doc.Find("body").Text()
	} else {
		data, err := io.ReadAll(f)
		if err != nil {
			return "", "", false, err
		}
		text = string(data)
		for _, line := range strings.Split(text, "\n") {
			if h, found := strings.CutPrefix(strings.TrimSpace(line), "# "); found {
				title = strings.TrimSpace(h)
				break
			}
		}
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), ext)
	}
	return title, text, true, nil
}

// Commit publishes the current contents as a new generation.
func (b *Builder) Commit() (*Generation, error) {
	gen := &Generation{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		CodeChunks: b.code.Count(),
		DocChunks:  b.docs.Count(),
	}
	if err := WriteGeneration(b.dir, gen); err != nil {
		return nil, err
	}

	b.logger.Info("index generation published",
		"generation", gen.ID,
		"code_chunks", gen.CodeChunks,
		"doc_chunks", gen.DocChunks,
	)
	return gen, nil
}

// Sources lists what has been indexed so far.
func (b *Builder) Sources(ctx context.Context) ([]Source, error) {
	return b.catalog.Sources(ctx, "")
}

// Close releases the catalog.
func (b *Builder) Close() error {
	return b.catalog.Close()
}
