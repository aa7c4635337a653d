package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kestrel-hq/kestrel/pkg/cli"
	"kestrel-hq/kestrel/pkg/index"
)

var searchFlags struct {
	repos    []string
	language string
	limit    int
	docs     bool
	output   string
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the code or documentation index",
	Long: `Run a query against the index built by "kestrel index", using the same
ranking the server applies when it retrieves completion snippets.

Examples:
  # Search all indexed code
  kestrel search "retry with backoff"

  # Restrict to one repository and language
  kestrel search "open database" --repo github.com/kestrel-hq/widgets --language go

  # Search documentation as JSON
  kestrel search "configuration reference" --docs --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringArrayVar(&searchFlags.repos, "repo", nil, "restrict to a repository git URL (repeatable)")
	searchCmd.Flags().StringVar(&searchFlags.language, "language", "", "restrict to a language")
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchFlags.docs, "docs", false, "search documentation instead of code")
	searchCmd.Flags().StringVarP(&searchFlags.output, "output", "o", "text", "output format: text, json")
}

type codeResults []index.CodeHit

func (r codeResults) Headers() []string {
	return []string{"Score", "Repository", "File", "Line"}
}

func (r codeResults) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, h := range r {
		rows = append(rows, []string{
			strconv.FormatFloat(float64(h.Score), 'f', 3, 32),
			h.GitURL,
			h.Filepath,
			strconv.Itoa(h.StartLine),
		})
	}
	return rows
}

type docResults []index.DocHit

func (r docResults) Headers() []string {
	return []string{"Score", "Title", "Source"}
}

func (r docResults) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, h := range r {
		rows = append(rows, []string{
			strconv.FormatFloat(float64(h.Score), 'f', 3, 32),
			h.Title,
			h.Source,
		})
	}
	return rows
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(searchFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	embedding, err := loadEmbedding(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("search", err)
	}
	defer embedding.Close()

	provider := index.NewReaderProvider(cfg.Index, embedding)
	defer provider.Close()

	query := strings.Join(args, " ")

	var result any
	if searchFlags.docs {
		hits, err := index.NewDocSearch(provider).Search(ctx, query, searchFlags.limit)
		if err != nil {
			return cli.NewCommandError("search", err)
		}
		result = docResults(hits)
	} else {
		repos := make([]string, 0, len(searchFlags.repos))
		for _, r := range searchFlags.repos {
			repos = append(repos, index.NormalizeGitURL(r))
		}
		hits, err := index.NewCodeSearch(provider).Search(ctx, query, index.SearchParams{
			GitURLs:  repos,
			Language: searchFlags.language,
			Limit:    searchFlags.limit,
		})
		if err != nil {
			return cli.NewCommandError("search", err)
		}
		result = codeResults(hits)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
