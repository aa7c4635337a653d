package middleware

import (
	"context"
	"net/http"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/index"
)

// AllowedRepositoryMiddleware attaches the configured repository allow list
// to every request. Handlers resolve a request's git URL against it with
// AllowedRepositoriesFromContext before code search may use the repository.
func AllowedRepositoryMiddleware(repos []config.RepositoryConfig) func(http.Handler) http.Handler {
	allowed := index.NewAllowedRepositories(repos)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), allowedRepositoriesKey, allowed)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AllowedRepositoriesFromContext returns the allow list attached by
// AllowedRepositoryMiddleware, or nil outside the completion routes.
func AllowedRepositoriesFromContext(ctx context.Context) *index.AllowedRepositories {
	allowed, _ := ctx.Value(allowedRepositoriesKey).(*index.AllowedRepositories)
	return allowed
}
