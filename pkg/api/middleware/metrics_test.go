package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type observation struct {
	route  string
	method string
	status int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{route, method, status})
}

func TestMetricsMiddleware(t *testing.T) {
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(obs))
	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	r.Post("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/v1/models", nil),
		httptest.NewRequest(http.MethodPost, "/v1/completions", nil),
		httptest.NewRequest(http.MethodGet, "/nope", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	want := []observation{
		{"/v1/models", http.MethodGet, http.StatusOK},
		{"/v1/completions", http.MethodPost, http.StatusNotImplemented},
		{"", http.MethodGet, http.StatusNotFound},
	}
	if len(obs.seen) != len(want) {
		t.Fatalf("observations = %v, want %v", obs.seen, want)
	}
	for i := range want {
		if obs.seen[i] != want[i] {
			t.Errorf("observation %d = %+v, want %+v", i, obs.seen[i], want[i])
		}
	}
}

func TestMetricsMiddleware_NilObserver(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := MetricsMiddleware(nil)(next); got == nil {
		t.Fatal("nil observer should pass the handler through")
	}
}
