package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"kestrel-hq/kestrel/pkg/config"
)

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://github.com/kestrel-hq/kestrel": true,
		"ssh://git@example.com/team/app.git":    true,
		"git@github.com:kestrel-hq/kestrel.git": true,
		"file:///home/dev/src/app":              false,
		"./src/app":                             false,
		"/home/dev/src/app":                     false,
		"C:/src/app":                            false,
	}
	for in, want := range tests {
		if got := IsRemote(in); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCheckoutDir(t *testing.T) {
	a := CheckoutDir("data/index", "https://github.com/kestrel-hq/kestrel.git")
	b := CheckoutDir("data/index", "git@github.com:kestrel-hq/kestrel.git")

	want := filepath.Join("data/index", "repos", "github.com", "kestrel-hq", "kestrel")
	if a != want {
		t.Errorf("CheckoutDir() = %q, want %q", a, want)
	}
	if a != b {
		t.Errorf("https and scp spellings should share a checkout: %q vs %q", a, b)
	}
}

func TestAuthMethod(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		auth, err := AuthMethod(config.GitAuthConfig{})
		if err != nil || auth != nil {
			t.Errorf("AuthMethod() = %v, %v; want nil, nil", auth, err)
		}
	})

	t.Run("token", func(t *testing.T) {
		auth, err := AuthMethod(config.GitAuthConfig{Type: "token", Token: "ghp_secret"})
		if err != nil {
			t.Fatalf("AuthMethod() error = %v", err)
		}
		basic, ok := auth.(*http.BasicAuth)
		if !ok || basic.Password != "ghp_secret" {
			t.Errorf("AuthMethod() = %#v", auth)
		}
	})

	t.Run("token from env", func(t *testing.T) {
		t.Setenv("KESTREL_TEST_GIT_TOKEN", "from-env")
		auth, err := AuthMethod(config.GitAuthConfig{Type: "token", TokenEnv: "KESTREL_TEST_GIT_TOKEN"})
		if err != nil {
			t.Fatalf("AuthMethod() error = %v", err)
		}
		if auth.(*http.BasicAuth).Password != "from-env" {
			t.Error("token not read from environment")
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := AuthMethod(config.GitAuthConfig{Type: "token", TokenEnv: "KESTREL_TEST_UNSET"}); err == nil {
			t.Error("expected error for empty token")
		}
	})

	t.Run("ssh key too open", func(t *testing.T) {
		key := filepath.Join(t.TempDir(), "id_ed25519")
		if err := os.WriteFile(key, []byte("not a key"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := AuthMethod(config.GitAuthConfig{Type: "ssh", SSHKeyPath: key}); err == nil {
			t.Error("expected error for world-readable key")
		}
	})

	t.Run("ssh key missing", func(t *testing.T) {
		_, err := AuthMethod(config.GitAuthConfig{Type: "ssh", SSHKeyPath: filepath.Join(t.TempDir(), "missing")})
		if err == nil {
			t.Error("expected error for missing key")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := AuthMethod(config.GitAuthConfig{Type: "kerberos"}); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
