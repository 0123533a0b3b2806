package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/constellation/pkg/observability"
	"github.com/matzehuels/constellation/pkg/pipeline"
	"github.com/matzehuels/constellation/pkg/view"
)

// Pinger reports backend readiness. store.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerOptions configures a [Server].
type ServerOptions struct {
	Logger *log.Logger

	// Defaults are the pipeline options query parameters override
	// (layout geometry, palette, wheel policy).
	Defaults pipeline.Options

	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// Ready is pinged by /ready when set.
	Ready Pinger

	// OnBubbleClick receives clicks posted to /api/constellation/click.
	OnBubbleClick view.ClickFunc
}

// Server is the HTTP front end of a pipeline runner.
type Server struct {
	runner   *pipeline.Runner
	opts     ServerOptions
	logger   *log.Logger
	router   chi.Router
	clicksMu sync.Mutex
	clicks   *view.Controller
}

// NewServer builds the router. The runner's source is what the matrix
// endpoint serves.
func NewServer(runner *pipeline.Runner, opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = runner.Logger
	}
	s := &Server{
		runner: runner,
		opts:   opts,
		logger: opts.Logger,
	}
	s.clicks = view.NewController(func(termID, thinkerID, thinkerName string) {
		observability.Server().OnClick(context.Background(), termID, thinkerID)
		if opts.OnBubbleClick != nil {
			opts.OnBubbleClick(termID, thinkerID, thinkerName)
		}
	})
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(serveHooks)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/critical-terms/cooccurrence-matrix", s.handleMatrix)
		r.Route("/constellation", func(r chi.Router) {
			r.Get("/layout", s.handleLayout)
			r.Get("/render.{format}", s.handleRender)
			r.Post("/click", s.handleClick)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
