package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// corsMaxAge is one year, in seconds.
const corsMaxAge = 365 * 24 * 60 * 60

type RouterOptions struct {
	// Version is the first path segment of every API route (e.g. "v1").
	Version string

	AllowedOrigins []string

	// AuthMiddleware guards the /passes routes. Required.
	AuthMiddleware func(http.Handler) http.Handler

	// MetricsHandler, when set, is served at /metrics.
	MetricsHandler http.Handler
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.Metrics != nil {
		r.Use(newMetricsMiddleware(s.Metrics))
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type", idempotencyHeader},
		MaxAge:         corsMaxAge,
	}).Handler)

	// Health and metrics endpoints are unversioned and unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	version := opts.Version
	if version == "" {
		version = "v1"
	}
	r.Route("/"+version, func(r chi.Router) {
		r.Route("/identity", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/login", s.Login)
			r.Post("/photo", s.PhotoURL)
		})
		r.Route("/passes", func(r chi.Router) {
			r.Use(opts.AuthMiddleware)
			r.Post("/", s.Apply)
			r.Get("/", s.ViewPasses)
			r.Get("/{id}", s.ViewPass)
		})
	})

	return r
}
