// Package server exposes partial-order alignment graphs over HTTP. Each
// graph lives behind a uuid handle in an in-memory registry; sequences are
// aligned and threaded through pkg/pipeline, and derived artifacts (MSA,
// GFA, renders) are served from the runner's cache. An optional pkg/store
// backend adds persistence endpoints for saving and reopening graphs by
// name.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/poagraph/poagraph/pkg/buildinfo"
	"github.com/poagraph/poagraph/pkg/pipeline"
	"github.com/poagraph/poagraph/pkg/store"
)

// Server handles the HTTP API. Construct it with New.
type Server struct {
	registry *Registry
	runner   *pipeline.Runner
	store    store.Store
	logger   *log.Logger
	version  string
}

// New creates a server around the given runner. st may be nil, in which
// case the persistence endpoints are not mounted. A nil runner gets
// default (uncached) pipeline behavior and a nil logger defaults to the
// standard logger.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		registry: NewRegistry(),
		runner:   runner,
		store:    st,
		logger:   logger,
		version:  buildinfo.Version,
	}
}

// Router builds the chi router with all routes and middleware registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverPanics)
	r.Use(s.logRequests)

	r.Get("/healthz", s.Health)
	r.Get("/readyz", s.Ready)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/graphs", func(r chi.Router) {
			r.Post("/", s.CreateGraph)
			r.Get("/", s.ListGraphs)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetGraph)
				r.Delete("/", s.DestroyGraph)
				r.Post("/sequences", s.AddSequences)
				r.Get("/msa", s.GetMSA)
				r.Get("/gfa", s.GetGFA)
				r.Get("/render", s.RenderGraph)
				if s.store != nil {
					r.Post("/save", s.SaveGraph)
				}
			})
		})

		if s.store != nil {
			r.Route("/store/graphs", func(r chi.Router) {
				r.Get("/", s.ListStored)
				r.Post("/{name}/open", s.OpenStored)
				r.Delete("/{name}", s.DeleteStored)
			})
		}
	})

	return r
}

// ListenAndServe runs the server on addr until ctx is canceled, then
// shuts down gracefully with a 30 second drain.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr, "version", s.version)

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
