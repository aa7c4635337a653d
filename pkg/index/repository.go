package index

import (
	"context"
	"net/url"
	"path"
	"strings"

	"kestrel-hq/kestrel/pkg/config"
)

// NormalizeGitURL reduces a git remote URL to host/path form so that the
// https, ssh and scp-like spellings of one repository compare equal.
// Credentials, scheme, a trailing ".git" and trailing slashes are removed and
// the host is lower-cased.
func NormalizeGitURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// scp-like syntax: git@github.com:owner/repo.git
	if !strings.Contains(s, "://") {
		if at := strings.Index(s, "@"); at >= 0 {
			s = s[at+1:]
		}
		if colon := strings.Index(s, ":"); colon > 0 && !strings.Contains(s[:colon], "/") {
			s = strings.ToLower(s[:colon]) + "/" + strings.TrimPrefix(s[colon+1:], "/")
		}
		return trimRepoSuffix(s)
	}

	u, err := url.Parse(s)
	if err != nil {
		return trimRepoSuffix(s)
	}
	if u.Scheme == "file" {
		return trimRepoSuffix(u.Path)
	}
	return trimRepoSuffix(strings.ToLower(u.Host) + u.Path)
}

func trimRepoSuffix(s string) string {
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")
	return strings.TrimRight(s, "/")
}

// repoName returns the last path element of a normalized URL.
func repoName(normalized string) string {
	return path.Base(normalized)
}

// AllowedRepositories is the set of repositories whose code may be used to
// enrich completion prompts.
type AllowedRepositories struct {
	urls []string
}

// NewAllowedRepositories builds the allow list from configuration.
func NewAllowedRepositories(repos []config.RepositoryConfig) *AllowedRepositories {
	a := &AllowedRepositories{}
	for _, r := range repos {
		if n := NormalizeGitURL(r.GitURL); n != "" {
			a.urls = append(a.urls, n)
		}
	}
	return a
}

// Len returns the number of allowed repositories.
func (a *AllowedRepositories) Len() int {
	if a == nil {
		return 0
	}
	return len(a.urls)
}

// ClosestMatch returns the normalized URL of the allowed repository that
// best matches gitURL. Only repositories with the same name are considered;
// among those the smallest edit distance wins.
func (a *AllowedRepositories) ClosestMatch(gitURL string) (string, bool) {
	if a == nil || gitURL == "" {
		return "", false
	}

	target := NormalizeGitURL(gitURL)
	name := repoName(target)

	best, bestDist := "", -1
	for _, u := range a.urls {
		if repoName(u) != name {
			continue
		}
		d := levenshtein(u, target)
		if bestDist < 0 || d < bestDist {
			best, bestDist = u, d
		}
	}
	return best, bestDist >= 0
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

type repositoryKey struct{}

// WithRepository attaches the matched repository URL to ctx.
func WithRepository(ctx context.Context, gitURL string) context.Context {
	return context.WithValue(ctx, repositoryKey{}, gitURL)
}

// RepositoryFromContext returns the repository attached by WithRepository.
func RepositoryFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(repositoryKey{}).(string)
	return u, ok && u != ""
}
