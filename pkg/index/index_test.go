package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	mocks "kestrel-hq/kestrel/internal/providers"
	"kestrel-hq/kestrel/pkg/config"
)

const testRemote = "git@github.com:kestrel-hq/widgets.git"

// createTestRepo creates a git repository with an origin remote and one
// commit containing files.
func createTestRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{testRemote}}); err != nil {
		t.Fatalf("failed to create remote: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		if _, err := worktree.Add(name); err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
	}

	_, err = worktree.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return dir
}

func testIndexConfig(t *testing.T) config.IndexConfig {
	t.Helper()
	return config.IndexConfig{Dir: filepath.Join(t.TempDir(), "index"), ChunkLines: 10}
}

func buildIndex(t *testing.T, cfg config.IndexConfig, repoDir, docsDir string) *Generation {
	t.Helper()

	b, err := NewBuilder(cfg, mocks.NewMockEmbedding())
	if err != nil {
		t.Fatalf("NewBuilder() failed: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	if repoDir != "" {
		if _, err := b.IndexRepository(ctx, repoDir); err != nil {
			t.Fatalf("IndexRepository() failed: %v", err)
		}
	}
	if docsDir != "" {
		if _, err := b.IndexDocs(ctx, docsDir); err != nil {
			t.Fatalf("IndexDocs() failed: %v", err)
		}
	}

	gen, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return gen
}

func TestBuilder_IndexRepository(t *testing.T) {
	repoDir := createTestRepo(t, map[string]string{
		"math/fib.go":   "package math\n\nfunc Fibonacci(n int) int {\n\treturn n\n}\n",
		"server/web.py": "def handle_request(request):\n    return response\n",
		"README.bin":    "ignored",
	})
	cfg := testIndexConfig(t)

	b, err := NewBuilder(cfg, mocks.NewMockEmbedding())
	if err != nil {
		t.Fatalf("NewBuilder() failed: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	src, err := b.IndexRepository(ctx, repoDir)
	if err != nil {
		t.Fatalf("IndexRepository() failed: %v", err)
	}

	if src.GitURL != "github.com/kestrel-hq/widgets" {
		t.Errorf("GitURL = %q", src.GitURL)
	}
	if src.Documents != 2 {
		t.Errorf("Documents = %d, want 2", src.Documents)
	}
	if len(src.Revision) != 40 {
		t.Errorf("Revision = %q, want a commit hash", src.Revision)
	}

	// Reindexing replaces chunks instead of duplicating them.
	if _, err := b.IndexRepository(ctx, repoDir); err != nil {
		t.Fatalf("second IndexRepository() failed: %v", err)
	}
	gen, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if gen.CodeChunks != 2 {
		t.Errorf("CodeChunks = %d, want 2", gen.CodeChunks)
	}

	sources, err := b.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources() failed: %v", err)
	}
	if len(sources) != 1 || sources[0].Kind != SourceCode {
		t.Errorf("unexpected sources: %+v", sources)
	}
}

func TestBuilder_RequiresEmbedding(t *testing.T) {
	_, err := NewBuilder(testIndexConfig(t), nil)
	if !errors.Is(err, ErrNoEmbedding) {
		t.Fatalf("expected ErrNoEmbedding, got %v", err)
	}
}

func TestCodeSearch(t *testing.T) {
	repoDir := createTestRepo(t, map[string]string{
		"math/fib.go":   "package math\n\n// fibonacci sequence helper\nfunc fibonacci(n int) int {\n\treturn n\n}\n",
		"server/web.py": "def handle_request(request):\n    return render_response(request)\n",
	})
	cfg := testIndexConfig(t)
	buildIndex(t, cfg, repoDir, "")

	provider := NewReaderProvider(cfg, mocks.NewMockEmbedding())
	defer provider.Close()
	search := NewCodeSearch(provider)
	ctx := context.Background()

	t.Run("ranks matching chunk first", func(t *testing.T) {
		hits, err := search.Search(ctx, "fibonacci sequence helper", SearchParams{Limit: 2})
		if err != nil {
			t.Fatalf("Search() failed: %v", err)
		}
		if len(hits) == 0 {
			t.Fatal("expected hits")
		}
		if hits[0].Filepath != "math/fib.go" || hits[0].Language != "go" || hits[0].StartLine != 1 {
			t.Errorf("unexpected top hit: %+v", hits[0])
		}
	})

	t.Run("filters by language", func(t *testing.T) {
		hits, err := search.Search(ctx, "fibonacci sequence helper", SearchParams{Language: "python"})
		if err != nil {
			t.Fatalf("Search() failed: %v", err)
		}
		for _, h := range hits {
			if h.Language != "python" {
				t.Errorf("unexpected language %q", h.Language)
			}
		}
	})

	t.Run("filters by repository", func(t *testing.T) {
		hits, err := search.Search(ctx, "fibonacci", SearchParams{GitURLs: []string{"github.com/other/repo"}})
		if err != nil {
			t.Fatalf("Search() failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("expected no hits, got %d", len(hits))
		}
	})

	t.Run("min score drops weak hits", func(t *testing.T) {
		hits, err := search.Search(ctx, "fibonacci", SearchParams{MinScore: 1.01})
		if err != nil {
			t.Fatalf("Search() failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("expected no hits, got %d", len(hits))
		}
	})
}

func TestCodeSearch_NoIndex(t *testing.T) {
	provider := NewReaderProvider(testIndexConfig(t), mocks.NewMockEmbedding())
	hits, err := NewCodeSearch(provider).Search(context.Background(), "anything", SearchParams{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if hits != nil {
		t.Errorf("expected no hits, got %v", hits)
	}
	if err := provider.Check(context.Background()); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Check() = %v, want ErrIndexNotFound", err)
	}
}

func TestDocSearch(t *testing.T) {
	docsDir := t.TempDir()
	html := `<html><head><title>Deploy Guide</title><script>var tracking = 1;</script></head>
<body><h1>Deploy</h1><p>Run the kestrel serve command behind a reverse proxy.</p></body></html>`
	if err := os.WriteFile(filepath.Join(docsDir, "deploy.html"), []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}
	md := "# Configuration\n\nSet the embedding model in config.yaml to enable search.\n"
	if err := os.WriteFile(filepath.Join(docsDir, "config.md"), []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testIndexConfig(t)
	gen := buildIndex(t, cfg, "", docsDir)
	if gen.DocChunks != 2 {
		t.Fatalf("DocChunks = %d, want 2", gen.DocChunks)
	}

	provider := NewReaderProvider(cfg, mocks.NewMockEmbedding())
	hits, err := NewDocSearch(provider).Search(context.Background(), "reverse proxy serve", 1)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Title != "Deploy Guide" || hits[0].Source != "deploy.html" {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
	if strings.Contains(hits[0].Body, "tracking") {
		t.Error("script content should be stripped")
	}
}

func TestReaderProvider_Watch(t *testing.T) {
	cfg := testIndexConfig(t)
	first := buildIndex(t, cfg, "", "")

	provider := NewReaderProvider(cfg, mocks.NewMockEmbedding())
	defer provider.Close()

	r, err := provider.Reader()
	if err != nil {
		t.Fatalf("Reader() failed: %v", err)
	}
	if r.Generation.ID != first.ID {
		t.Fatalf("generation = %s, want %s", r.Generation.ID, first.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := provider.Watch(ctx); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	second := buildIndex(t, cfg, "", "")

	mocks.WaitForCondition(t, 5*time.Second, func() bool {
		r, err := provider.Reader()
		return err == nil && r.Generation.ID == second.ID
	}, "reader did not pick up the new generation")
}

func TestGenerationMarker(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadGeneration(dir); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}

	want := &Generation{ID: "gen-1", CreatedAt: time.Now().UTC().Truncate(time.Second), CodeChunks: 3}
	if err := WriteGeneration(dir, want); err != nil {
		t.Fatalf("WriteGeneration() failed: %v", err)
	}
	got, err := ReadGeneration(dir)
	if err != nil {
		t.Fatalf("ReadGeneration() failed: %v", err)
	}
	if got.ID != want.ID || got.CodeChunks != 3 || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCatalog(t *testing.T) {
	catalog, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCatalog() failed: %v", err)
	}
	defer catalog.Close()

	ctx := context.Background()
	now := time.Now()
	if err := catalog.Upsert(ctx, &Source{Kind: SourceCode, Location: "/src/a", GitURL: "github.com/x/a", Documents: 1, IndexedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := catalog.Upsert(ctx, &Source{Kind: SourceCode, Location: "/src/a", GitURL: "github.com/x/a", Documents: 7, IndexedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := catalog.Upsert(ctx, &Source{Kind: SourceDocs, Location: "/docs", Documents: 2, IndexedAt: now}); err != nil {
		t.Fatal(err)
	}

	code, err := catalog.Sources(ctx, SourceCode)
	if err != nil {
		t.Fatalf("Sources() failed: %v", err)
	}
	if len(code) != 1 || code[0].Documents != 7 {
		t.Errorf("unexpected code sources: %+v", code)
	}
	if !code[0].IndexedAt.Equal(now) {
		t.Errorf("IndexedAt = %v, want %v", code[0].IndexedAt, now)
	}

	all, err := catalog.Sources(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 sources, got %d", len(all))
	}
}
