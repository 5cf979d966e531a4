package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/snakebridge/internal/bridge"
	"github.com/seantiz/snakebridge/internal/model"
	"github.com/seantiz/snakebridge/internal/store"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second

	defaultCallTimeout = 450 * time.Millisecond
	poweredBy          = "snakebridge"
)

// Options tunes request handling.
type Options struct {
	// CallTimeout bounds how long /start and /move wait for the engine.
	CallTimeout time.Duration

	// Ready reports engine readiness for /healthz. Nil means always ready.
	Ready func() bool
}

// Server wraps the chi router and application dependencies.
type Server struct {
	router      *chi.Mux
	bridge      *bridge.Bridge
	store       store.Store
	logger      *slog.Logger
	addr        string
	callTimeout time.Duration
	ready       func() bool
}

// NewServer creates and configures a new HTTP server.
func NewServer(addr string, br *bridge.Bridge, s store.Store, logger *slog.Logger, opts Options) *Server {
	srv := &Server{
		router:      chi.NewRouter(),
		bridge:      br,
		store:       s,
		logger:      logger,
		addr:        addr,
		callTimeout: opts.CallTimeout,
		ready:       opts.Ready,
	}
	if srv.callTimeout <= 0 {
		srv.callTimeout = defaultCallTimeout
	}
	if srv.ready == nil {
		srv.ready = func() bool { return true }
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(poweredByMiddleware)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Post("/start", s.handleCall(model.KindStart))
	s.router.Post("/move", s.handleCall(model.KindMove))
	s.router.Post("/end", s.handleEnd)
	s.router.Post("/ping", s.handlePing)

	s.router.Get("/v1/bridge", s.handleBridgeStatus)
	s.router.Get("/v1/stats", s.handleGetStats)
	s.router.Route("/v1/calls", func(r chi.Router) {
		r.Get("/", s.handleListCalls)
		r.Get("/{id}", s.handleGetCall)
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run serves HTTP until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", context.Cause(ctx))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func poweredByMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Powered-By", poweredBy)
		next.ServeHTTP(w, r)
	})
}

type indexResponse struct {
	Name    string   `json:"name"`
	Message string   `json:"message"`
	Routes  []string `json:"routes"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, indexResponse{
		Name:    poweredBy,
		Message: "Battlesnake server. The game engine answers POST requests on the routes below.",
		Routes:  []string{"/start", "/move", "/end", "/ping"},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
