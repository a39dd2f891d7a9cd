// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware for the bills service.
package api

import (
	"bills/internal/api/handler/v1handler"
	"bills/internal/config"
	"bills/pkg/controller"
	_ "embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

// v1Spec contains the embedded OpenAPI specification for version 1 of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
	// PprofEnabled mounts the net/http/pprof handlers under /debug/pprof/.
	PprofEnabled bool
}

// NewOptions constructs an Options value from the provided application configuration.
// It maps HTTP server-related settings from config.Config to the Options used by the API server.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.Addr(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
		PprofEnabled:      cfg.HTTP.PprofEnabled,
	}
}

type Deps struct {
	v1handler.Deps
}

// candidateMethods are probed to build the Allow header of 405 answers.
var candidateMethods = []string{ //nolint: gochecknoglobals
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// NewRouter returns the routes of the service without the outer middlewares:
// - root status, bill creation and listing
// - Prometheus metrics endpoint (MetricsPath)
// - Embedded OpenAPI v1 spec and Swagger UI
// - pprof endpoints for profiling, when enabled
// Unknown paths and wrong methods are answered with problem bodies.
func NewRouter(deps Deps, opts Options) http.Handler {
	r := chi.NewRouter()

	r.NotFound(v1handler.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		v1handler.MethodNotAllowed(w, req, allowedMethods(r, req.URL.Path))
	})

	// prometheus metrics server
	if opts.MetricsPath != "" {
		r.Method(http.MethodGet, opts.MetricsPath, promhttp.Handler())
	}

	// v1 specs file
	r.Get("/specs/v1.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// v1 api swagger playground
	r.Handle("/v1/docs/*", v5emb.New(
		"Bills API",
		"/specs/v1.yaml",
		"/v1/docs/",
	))

	// v1 api
	v1handler.New(deps.Deps).Register(r)

	// pprof
	if opts.PprofEnabled {
		r.Mount(controller.PprofPath, controller.PprofMux())
	}

	return r
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// The router is wrapped with panic recovery, CORS and logging middlewares and
// a request timeout.
func NewServer(deps Deps, opts Options) *http.Server {
	handler := NewRouter(deps, opts)

	// recover
	handler = controller.WithRecover(handler)

	// cors
	handler = controller.WithCORS(handler)

	// logger
	handler = controller.WithLogger(handler)

	if opts.RequestTimeout > 0 {
		handler = controller.WithTimeout(handler, opts.RequestTimeout)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}
}

func allowedMethods(routes chi.Routes, path string) []string {
	var allowed []string
	for _, m := range candidateMethods {
		if routes.Match(chi.NewRouteContext(), m, path) {
			allowed = append(allowed, m)
		}
	}

	return allowed
}
