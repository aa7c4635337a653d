package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"kestrel-hq/kestrel/pkg/config"
)

// checkoutsDir holds clones of remote repositories under the index directory.
const checkoutsDir = "repos"

// IsRemote reports whether location names a git remote rather than a local
// directory.
func IsRemote(location string) bool {
	if strings.HasPrefix(location, "file://") {
		return false
	}
	if strings.Contains(location, "://") {
		return true
	}
	// scp-like: git@github.com:owner/repo.git
	at := strings.Index(location, "@")
	colon := strings.Index(location, ":")
	return at > 0 && colon > at
}

// CheckoutDir is where Checkout places the clone of gitURL.
func CheckoutDir(indexDir, gitURL string) string {
	return filepath.Join(indexDir, checkoutsDir, filepath.FromSlash(NormalizeGitURL(gitURL)))
}

// Checkout clones repo into the index directory, or pulls it when a clone
// already exists, and returns the working tree path.
func Checkout(ctx context.Context, indexDir string, repo config.RepositoryConfig) (string, error) {
	logger := slog.Default().With("component", "index.checkout")
	dir := CheckoutDir(indexDir, repo.GitURL)

	auth, err := AuthMethod(repo.Auth)
	if err != nil {
		return "", &IndexError{Op: "checkout", Path: repo.GitURL, Err: err}
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		r, err := gogit.PlainOpen(dir)
		if err != nil {
			return "", &IndexError{Op: "checkout", Path: dir, Err: err}
		}
		wt, err := r.Worktree()
		if err != nil {
			return "", &IndexError{Op: "checkout", Path: dir, Err: err}
		}
		err = wt.PullContext(ctx, &gogit.PullOptions{RemoteName: "origin", Auth: auth})
		if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return "", &IndexError{Op: "pull", Path: repo.GitURL, Err: err}
		}
		logger.Info("repository updated", "git_url", repo.GitURL, "dir", dir)
		return dir, nil
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", &IndexError{Op: "checkout", Path: dir, Err: err}
	}

	opts := &gogit.CloneOptions{
		URL:   repo.GitURL,
		Auth:  auth,
		Depth: 1,
	}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		opts.SingleBranch = true
	}

	if _, err := gogit.PlainCloneContext(ctx, dir, false, opts); err != nil {
		_ = os.RemoveAll(dir)
		return "", &IndexError{Op: "clone", Path: repo.GitURL, Err: err}
	}

	logger.Info("repository cloned", "git_url", repo.GitURL, "dir", dir, "auth", authType(repo.Auth))
	return dir, nil
}

// AuthMethod builds the git transport credentials for cfg. It returns nil
// for public repositories.
func AuthMethod(cfg config.GitAuthConfig) (transport.AuthMethod, error) {
	switch authType(cfg) {
	case "none":
		return nil, nil

	case "token":
		token := cfg.Token
		if token == "" && cfg.TokenEnv != "" {
			token = os.Getenv(cfg.TokenEnv)
		}
		if token == "" {
			return nil, errors.New("token cannot be empty")
		}
		// Any username works for token auth.
		return &http.BasicAuth{Username: "git", Password: token}, nil

	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, errors.New("ssh key path cannot be empty")
		}
		info, err := os.Stat(cfg.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		keys, err := ssh.NewPublicKeysFromFile("git", cfg.SSHKeyPath, cfg.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return keys, nil

	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}
}

func authType(cfg config.GitAuthConfig) string {
	if cfg.Type == "" {
		return "none"
	}
	return cfg.Type
}
