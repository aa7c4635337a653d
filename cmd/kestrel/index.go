package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kestrel-hq/kestrel/pkg/cli"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/index"
	"kestrel-hq/kestrel/pkg/model"
	"kestrel-hq/kestrel/pkg/providers"
)

var indexFlags struct {
	repos []string
	docs  []string
}

var errNoEmbeddingModel = errors.New("model.embedding must be configured")

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the code and documentation index",
	Long: `Index git repositories and documentation directories for code search.

Repositories are read at HEAD; uncommitted changes are not indexed. Chunks from
an earlier run over the same repository are replaced. A running server picks up
the new index when index.watch is enabled.

A --repo that is a git remote is cloned into <index.dir>/repos, or pulled when a
clone exists, using the auth settings of the matching entry in repositories.
Without --repo or --docs every configured repository is indexed.

Examples:
  # Index one repository
  kestrel index --repo ~/src/widgets

  # Clone and index every repository listed in the config file
  kestrel index

  # Index two repositories and a documentation site
  kestrel index --repo ~/src/widgets --repo ~/src/gadgets --docs ~/src/widgets/site`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringArrayVar(&indexFlags.repos, "repo", nil, "git repository directory or remote URL (repeatable)")
	indexCmd.Flags().StringArrayVar(&indexFlags.docs, "docs", nil, "documentation directory (repeatable)")
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repos := indexFlags.repos
	if len(repos) == 0 && len(indexFlags.docs) == 0 {
		for _, r := range cfg.Repositories {
			repos = append(repos, r.GitURL)
		}
	}
	if len(repos) == 0 && len(indexFlags.docs) == 0 {
		return cli.NewConfigError("--repo", errors.New("at least one --repo or --docs is required when no repositories are configured"))
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	embedding, err := loadEmbedding(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("index", err)
	}
	defer embedding.Close()

	builder, err := index.NewBuilder(cfg.Index, embedding)
	if err != nil {
		return cli.NewCommandError("index", err)
	}
	defer builder.Close()

	total := len(repos) + len(indexFlags.docs)
	progress := cli.NewProgressReporter(cmd.OutOrStdout())
	progress.Start(total)

	failed := 0
	for _, location := range repos {
		dir, err := resolveRepository(ctx, cfg, location)
		if err == nil {
			var src *index.Source
			if src, err = builder.IndexRepository(ctx, dir); err == nil {
				progress.Step(fmt.Sprintf("%s (%d chunks)", src.GitURL, src.Documents))
				continue
			}
		}
		progress.Error(location, err)
		failed++
	}
	for _, dir := range indexFlags.docs {
		src, err := builder.IndexDocs(ctx, dir)
		if err != nil {
			progress.Error(dir, err)
			failed++
			continue
		}
		progress.Step(fmt.Sprintf("%s (%d chunks)", src.Location, src.Documents))
	}
	progress.Finish()

	if ctx.Err() != nil {
		return cli.NewCommandError("index", ctx.Err())
	}

	gen, err := builder.Commit()
	if err != nil {
		return cli.NewCommandError("index", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generation %s: %d code chunks, %d doc chunks\n",
		gen.ID, gen.CodeChunks, gen.DocChunks)

	if failed > 0 {
		return cli.NewCommandError("index", fmt.Errorf("%d of %d sources failed", failed, total))
	}
	return nil
}

// resolveRepository returns a local working tree for location, cloning it
// first when it is a git remote.
func resolveRepository(ctx context.Context, cfg *config.Config, location string) (string, error) {
	if !index.IsRemote(location) {
		return location, nil
	}
	return index.Checkout(ctx, cfg.Index.Dir, repositoryFor(cfg.Repositories, location))
}

// repositoryFor returns the configured entry for gitURL, or a bare entry
// without credentials when the URL is not configured.
func repositoryFor(repos []config.RepositoryConfig, gitURL string) config.RepositoryConfig {
	want := index.NormalizeGitURL(gitURL)
	for _, r := range repos {
		if index.NormalizeGitURL(r.GitURL) == want {
			r.GitURL = gitURL
			return r
		}
	}
	return config.RepositoryConfig{GitURL: gitURL}
}

// loadEmbedding resolves the embedding role, which indexing and search
// cannot do without.
func loadEmbedding(ctx context.Context, cfg *config.Config) (providers.Embedding, error) {
	embedding, err := model.LoadEmbedding(ctx, cfg.Model.Embedding)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, errNoEmbeddingModel
	}
	return embedding, nil
}
