// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"palatlas-go/internal/config"
	"palatlas-go/internal/logger"
	"palatlas-go/internal/pipeline"
	"palatlas-go/internal/types"
	"palatlas-go/internal/views"
)

const serviceName = "palatlas-go"

// Service is the request-scoped work the handlers delegate to.
// *pipeline.Pipeline satisfies it.
type Service interface {
	Visualizations(ctx context.Context, req pipeline.Request) (views.Results, error)
	Summarize(ctx context.Context, req pipeline.Request) (types.Summary, error)
	Analyze(ctx context.Context, req pipeline.Request) (pipeline.Analysis, error)
	Chat(ctx context.Context, req pipeline.ChatRequest) (pipeline.ChatReply, error)
	Compare(ctx context.Context, req pipeline.CompareRequest) (views.Chart, error)
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, svc Service, log *logger.Logger) *Server {
	router := chi.NewRouter()
	log = log.Component("http")

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}))

	h := &handler{svc: svc, log: log}

	router.Route("/api", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(recoverJSON(log))

		r.Get("/", h.index)
		r.Get("/health", h.health)

		r.Post("/visualizations", h.visualizations)
		r.Post("/analysis", h.analysis)
		r.Post("/chatgpt-analysis", h.analysis)
		r.Post("/chat", h.chat)
		r.Post("/chat-response", h.chat)
		r.Post("/compare", h.compare)
		r.Post("/export", h.export)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respondWithError(w, http.StatusNotFound, "endpoint not found")
		})
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/*", spaHandler(cfg.StaticDir))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request and records its duration by
// route pattern.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "static"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			observeDuration(route, status, time.Since(start))

			entry := log.WithRequest(r).
				WithField("status", status).
				WithField("bytes", ww.BytesWritten()).
				WithField("duration_ms", time.Since(start).Milliseconds())
			if status >= http.StatusInternalServerError {
				entry.Warn("request failed")
				return
			}
			entry.Info("request served")
		})
	}
}

// recoverJSON turns a panic outside the view generators into a JSON 500.
func recoverJSON(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithRequest(r).WithField("panic", fmt.Sprint(rec)).Error("handler panicked")
					respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
