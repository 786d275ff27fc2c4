// Package httpapi exposes the audio service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/service"
	"github.com/dgnsrekt/lingocast/internal/storage"
)

// Backend is what the handlers need from the audio service.
type Backend interface {
	ProcessCSV(ctx context.Context, r io.Reader, req job.Request) (service.Result, error)
	TextToAudio(ctx context.Context, req job.TextRequest) (service.Result, error)
	Health(ctx context.Context) service.Health
	SupportedLanguages() map[string]string
	ListFiles(ctx context.Context) ([]storage.FileInfo, error)
	OpenFile(ctx context.Context, name string) (io.ReadCloser, storage.FileInfo, error)
	DeleteFile(ctx context.Context, name string) error
	RecentJobs(ctx context.Context, limit int) ([]history.Job, error)
}

// Config holds HTTP settings.
type Config struct {
	Addr        string
	MaxUploadMB int64
	CORSOrigins []string
	RateLimit   int // generation requests per minute per IP, 0 disables
}

// DefaultConfig returns the HTTP defaults.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8000",
		MaxUploadMB: 20,
		CORSOrigins: []string{"*"},
		RateLimit:   30,
	}
}

// Server serves the API.
type Server struct {
	cfg     Config
	backend Backend
	router  chi.Router
}

// New builds the router.
func New(b Backend, cfg Config) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultConfig().MaxUploadMB
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = DefaultConfig().CORSOrigins
	}
	s := &Server{cfg: cfg, backend: b}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(recoverPanics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", RequestIDHeader},
		AllowCredentials: true,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleLiveness)

	r.Route("/api/v1/audio", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/supported-languages", s.handleLanguages)
		r.Get("/files", s.handleListFiles)
		r.Get("/download/{filename}", s.handleDownload)
		r.Delete("/files/{filename}", s.handleDelete)
		r.Get("/jobs", s.handleJobs)

		r.Group(func(r chi.Router) {
			if s.cfg.RateLimit > 0 {
				r.Use(httprate.Limit(s.cfg.RateLimit, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
						writeJSON(w, http.StatusTooManyRequests, job.Response{
							Message: "Too many requests",
							Error:   "rate limit exceeded, try again later",
						})
					}),
				))
			}
			r.Post("/csv-to-audio", s.handleCSV)
			r.Post("/text-to-audio", s.handleText)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to 30 seconds.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Audio service listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down audio service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
