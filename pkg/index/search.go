package index

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
)

// Hybrid ranking weights for vector similarity and keyword overlap.
const (
	semanticWeight = 0.7
	keywordWeight  = 0.3
)

// Metadata keys stored with every code chunk.
const (
	metaGitURL    = "git_url"
	metaFilepath  = "filepath"
	metaLanguage  = "language"
	metaStartLine = "start_line"
	metaCommit    = "commit"
	metaTitle     = "title"
	metaSource    = "source"
)

// SearchParams narrows a code search.
type SearchParams struct {
	// GitURLs restricts hits to these normalized repositories. Empty means
	// any repository.
	GitURLs []string

	// Language restricts hits to one language. Empty means any.
	Language string

	// Limit is the maximum number of hits. Default: 5
	Limit int

	// MinScore drops hits whose combined score is lower.
	MinScore float32
}

// CodeHit is one code chunk returned by CodeSearch.
type CodeHit struct {
	GitURL    string
	Filepath  string
	Language  string
	StartLine int
	Body      string
	Score     float32
}

// DocHit is one documentation chunk returned by DocSearch.
type DocHit struct {
	Title  string
	Source string
	Body   string
	Score  float32
}

// CodeSearch ranks indexed code chunks against a query.
type CodeSearch struct {
	provider *ReaderProvider
}

// NewCodeSearch returns a code search over the provider's index.
func NewCodeSearch(provider *ReaderProvider) *CodeSearch {
	return &CodeSearch{provider: provider}
}

// Search returns the best matching code chunks. When no index has been built
// it returns no hits and no error.
func (s *CodeSearch) Search(ctx context.Context, query string, params SearchParams) ([]CodeHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 5
	}

	r, err := s.provider.Reader()
	if errors.Is(err, ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	filters := []map[string]string{nil}
	if len(params.GitURLs) > 0 {
		filters = filters[:0]
		for _, u := range params.GitURLs {
			filters = append(filters, map[string]string{metaGitURL: u})
		}
	}

	var hits []CodeHit
	for _, where := range filters {
		if params.Language != "" {
			if where == nil {
				where = map[string]string{}
			}
			where[metaLanguage] = params.Language
		}

		results, err := rankedQuery(ctx, r.code, query, limit, where)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			if res.score < params.MinScore {
				continue
			}
			line, _ := strconv.Atoi(res.Metadata[metaStartLine])
			hits = append(hits, CodeHit{
				GitURL:    res.Metadata[metaGitURL],
				Filepath:  res.Metadata[metaFilepath],
				Language:  res.Metadata[metaLanguage],
				StartLine: line,
				Body:      res.Content,
				Score:     res.score,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// DocSearch ranks indexed documentation chunks against a query.
type DocSearch struct {
	provider *ReaderProvider
}

// NewDocSearch returns a documentation search over the provider's index.
func NewDocSearch(provider *ReaderProvider) *DocSearch {
	return &DocSearch{provider: provider}
}

// Search returns up to limit documentation chunks.
func (s *DocSearch) Search(ctx context.Context, query string, limit int) ([]DocHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	r, err := s.provider.Reader()
	if errors.Is(err, ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	results, err := rankedQuery(ctx, r.docs, query, limit, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]DocHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, DocHit{
			Title:  res.Metadata[metaTitle],
			Source: res.Metadata[metaSource],
			Body:   res.Content,
			Score:  res.score,
		})
	}
	return hits, nil
}

type scoredResult struct {
	chromem.Result
	score float32
}

// rankedQuery runs a vector query and re-ranks the results with keyword overlap.
func rankedQuery(ctx context.Context, col *chromem.Collection, text string, limit int, where map[string]string) ([]scoredResult, error) {
	n := min(limit, col.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := col.Query(ctx, text, n, where, nil)
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}

	words := extractWords(text)
	scored := make([]scoredResult, 0, len(results))
	for _, r := range results {
		scored = append(scored, scoredResult{
			Result: r,
			score:  semanticWeight*r.Similarity + keywordWeight*keywordScore(words, r.Content),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	return scored, nil
}

func extractWords(text string) []string {
	var words []string
	seen := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), isWordSeparator) {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func isWordSeparator(r rune) bool {
	return !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
}

// keywordScore is the fraction of query words present in content.
func keywordScore(words []string, content string) float32 {
	if len(words) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			matched++
		}
	}
	return float32(matched) / float32(len(words))
}
