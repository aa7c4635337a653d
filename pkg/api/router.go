package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"kestrel-hq/kestrel/pkg/api/middleware"
	"kestrel-hq/kestrel/pkg/api/types"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
	"kestrel-hq/kestrel/pkg/services"
	"kestrel-hq/kestrel/pkg/telemetry/health"
	"kestrel-hq/kestrel/pkg/telemetry/metrics"
	"kestrel-hq/kestrel/pkg/telemetry/tracing"
)

// Route is one entry of the HTTP route table.
type Route struct {
	Method  string
	Pattern string

	// Name identifies the handler binding, e.g. "completions" or
	// "completions.unavailable".
	Name    string
	Handler http.Handler

	// Degraded marks a route that stands in for a capability that did not
	// load.
	Degraded bool
}

// RouteTable is the ordered set of routes the server exposes.
type RouteTable struct {
	routes []Route
	cors   *config.CORSConfig
	obs    middleware.RequestObserver
	tracer *tracing.Tracer
}

// Routes returns a copy of the table entries in registration order.
func (t RouteTable) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Lookup returns the route registered for method and pattern.
func (t RouteTable) Lookup(method, pattern string) (Route, bool) {
	for _, r := range t.routes {
		if r.Method == method && r.Pattern == pattern {
			return r, true
		}
	}
	return Route{}, false
}

// Paths lists every route as "METHOD /pattern".
func (t RouteTable) Paths() []string {
	paths := make([]string, 0, len(t.routes))
	for _, r := range t.routes {
		paths = append(paths, fmt.Sprintf("%s %s", r.Method, r.Pattern))
	}
	return paths
}

// Handler mounts the table on a chi router with the global middleware
// chain: request id, tracing, logging, panic recovery, metrics and CORS.
func (t RouteTable) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.TracingMiddleware(t.tracer))
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.MetricsMiddleware(t.obs))
	if t.cors != nil && t.cors.Enabled {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: t.cors.AllowedOrigins,
			AllowedMethods: t.cors.AllowedMethods,
			AllowedHeaders: t.cors.AllowedHeaders,
			MaxAge:         t.cors.MaxAge,
		}).Handler)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		_ = WriteErrorResponse(w, types.NewNotFoundError(
			fmt.Sprintf("Unknown path %s", req.URL.Path),
		))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		_ = WriteErrorResponse(w, types.NewMethodNotAllowedError(
			fmt.Sprintf("Method %s is not allowed on %s", req.Method, req.URL.Path),
		))
	})

	for _, route := range t.routes {
		r.Method(route.Method, route.Pattern, route.Handler)
	}

	return r
}

// Option configures Build.
type Option func(*builder)

// WithMetrics exposes c at the configured metrics path and reports every
// request to it.
func WithMetrics(c *metrics.Collector) Option {
	return func(b *builder) {
		b.metrics = c
	}
}

// WithHealth backs /v1/health with the component checks of c.
func WithHealth(c *health.Checker) Option {
	return func(b *builder) {
		b.health = c
	}
}

// WithVersion sets the build information reported by /v1/health.
func WithVersion(v types.Version) Option {
	return func(b *builder) {
		b.version = v
	}
}

// WithDevice sets the inference device reported by /v1/health.
func WithDevice(device string) Option {
	return func(b *builder) {
		b.device = device
	}
}

// WithTracer starts a server span for every request.
func WithTracer(t *tracing.Tracer) Option {
	return func(b *builder) {
		b.tracer = t
	}
}

type builder struct {
	rs      *services.ResolvedServices
	cfg     *config.Config
	sink    events.Logger
	metrics *metrics.Collector
	health  *health.Checker
	tracer  *tracing.Tracer
	version types.Version
	device  string
}

// guarded wraps a model route with the completion timeout and the allowed
// repository list.
func (b *builder) guarded(h http.Handler) http.Handler {
	h = middleware.AllowedRepositoryMiddleware(b.cfg.Repositories)(h)
	return middleware.TimeoutMiddleware(b.cfg.Server.CompletionTimeout)(h)
}

type fragment struct {
	when   func(services.Capabilities) bool
	routes func(*builder) []Route
}

func always(services.Capabilities) bool { return true }

var fragments = []fragment{
	{
		when: always,
		routes: func(b *builder) []Route {
			return []Route{
				{Method: http.MethodPost, Pattern: "/v1/events", Name: "events", Handler: &eventsHandler{sink: b.sink}},
				{Method: http.MethodGet, Pattern: "/v1/models", Name: "models", Handler: staticJSON(newModelsSnapshot(b.cfg))},
			}
		},
	},
	{
		when: func(c services.Capabilities) bool { return c.Completion },
		routes: func(b *builder) []Route {
			return []Route{{
				Method:  http.MethodPost,
				Pattern: "/v1/completions",
				Name:    "completions",
				Handler: b.guarded(&completionsHandler{service: b.rs.Completion}),
			}}
		},
	},
	{
		when: func(c services.Capabilities) bool { return c.Completion && c.Chat },
		routes: func(b *builder) []Route {
			return []Route{{
				Method:  http.MethodPost,
				Pattern: "/v1/chat/completions",
				Name:    "chat_completions",
				Handler: b.guarded(&chatHandler{chat: b.rs.Chat, sink: b.sink}),
			}}
		},
	},
	{
		when: func(c services.Capabilities) bool { return !c.Completion },
		routes: func(b *builder) []Route {
			return []Route{{
				Method:   http.MethodPost,
				Pattern:  "/v1/completions",
				Name:     "completions.unavailable",
				Handler:  notImplemented("completion"),
				Degraded: true,
			}}
		},
	},
	{
		when: always,
		routes: func(b *builder) []Route {
			setting := types.ServerSetting{
				DisableClientSideTelemetry: b.cfg.Server.DisableClientSideTelemetry,
			}
			return []Route{
				{Method: http.MethodGet, Pattern: "/v1beta/server_setting", Name: "server_setting", Handler: staticJSON(setting)},
				{Method: http.MethodGet, Pattern: "/v1/health", Name: "health", Handler: newHealthHandler(b.cfg, b.rs.PromptInfo, b.health, b.device, b.version)},
			}
		},
	},
	{
		when: always,
		routes: func(b *builder) []Route {
			if b.metrics == nil || !b.cfg.Telemetry.Metrics.IsEnabled() {
				return nil
			}
			return []Route{{
				Method:  http.MethodGet,
				Pattern: b.cfg.Telemetry.Metrics.Path,
				Name:    "metrics",
				Handler: b.metrics.Handler(),
			}}
		},
	},
}

// Build assembles the route table for the resolved services. Capabilities
// that did not load either answer 501 (completion) or are left unrouted
// (chat). Building twice from the same inputs yields the same table.
func Build(rs *services.ResolvedServices, cfg *config.Config, opts ...Option) RouteTable {
	if rs == nil {
		rs = &services.ResolvedServices{}
	}
	if cfg == nil {
		cfg = config.Default()
	}

	b := &builder{
		rs:     rs,
		cfg:    cfg,
		sink:   rs.Events,
		device: string(config.DefaultDevice),
	}
	if b.sink == nil {
		b.sink = events.NoopLogger{}
	}
	for _, opt := range opts {
		opt(b)
	}

	caps := rs.Capabilities()
	if caps.Chat && !caps.Completion {
		slog.Default().With("component", "api").Warn("chat model loaded without a completion model, chat route disabled")
	}

	var routes []Route
	for _, f := range fragments {
		if f.when(caps) {
			routes = append(routes, f.routes(b)...)
		}
	}

	table := RouteTable{routes: routes, cors: &cfg.Server.CORS, tracer: b.tracer}
	if b.metrics != nil {
		table.obs = b.metrics
	}

	slog.Default().With("component", "api").Debug("route table built",
		"routes", len(routes),
		"completion", caps.Completion,
		"chat", caps.Chat,
		"search", caps.Search,
	)

	return table
}
