package bookstore

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"BookNook/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

const (
	loginLimitPerMin    = 5
	registerLimitPerMin = 3
	limitWindow         = 60 * time.Second
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.RoutePatternOrPath))

		if deps.MetricsEnabled {
			r.With(kit.MetricsAuth(deps.MetricsToken)).
				Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.handleReady)

	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, int(limitWindow.Seconds()))
	registerLimiter := kit.NewIPRateLimiter(registerLimitPerMin, int(limitWindow.Seconds()))

	r.Route("/api", func(api chi.Router) {
		api.Get("/books", s.handleListBooks)
		api.Get("/books/recommended", s.handleRecommendedBooks)
		api.Get("/books/{isbn}", s.handleGetBook)

		api.Route("/auth", func(ar chi.Router) {
			ar.With(registerLimiter.Middleware).Post("/register", s.handleRegister)
			ar.With(loginLimiter.Middleware).Post("/login", s.handleLogin)
			ar.Post("/logout", s.handleLogout)
			ar.With(RequireUser(s.JWT)).Get("/me", s.handleMe)
		})

		api.Group(func(pr chi.Router) {
			pr.Use(RequireUser(s.JWT))

			pr.Group(func(owner chi.Router) {
				owner.Use(RequireOwner)
				owner.Post("/books", s.handleCreateBook)
				owner.Put("/books/{isbn}", s.handleUpdateBook)
				owner.Delete("/books/{isbn}", s.handleDeleteBook)
			})

			pr.Get("/cart", s.handleGetCart)
			pr.Put("/cart/items/{isbn}", s.handleSetCartItem)
			pr.Delete("/cart/items/{isbn}", s.handleDeleteCartItem)
			pr.Post("/cart/checkout", s.handleCheckout)

			pr.Get("/orders", s.handleOrders)
		})
	})

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}
