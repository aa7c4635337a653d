package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, duration time.Duration)
}

// MetricsMiddleware reports every request to observer, labelled with the
// matched chi route pattern rather than the raw path. Requests that match
// no route are reported with an empty route.
func MetricsMiddleware(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}

			observer.ObserveRequest(route, r.Method, status, time.Since(start))
		})
	}
}
