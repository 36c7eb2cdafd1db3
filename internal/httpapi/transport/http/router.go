package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otprent/rental-gateway/internal/httpapi/middleware"
)

// RouterConfig carries the cross-cutting knobs the router needs.
type RouterConfig struct {
	JWTSecret          string
	CORSAllowedOrigins []string
}

// NewRouter assembles the full HTTP surface.
func NewRouter(
	rentalHandler *RentalHandler,
	authHandler *AuthHandler,
	proxyHandler *ProxyHandler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/proxy", proxyHandler.Forward)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Get("/balance", rentalHandler.GetBalance)
		r.Get("/services", rentalHandler.GetServices)
		r.Get("/history", rentalHandler.GetHistory)

		r.Route("/rentals", func(r chi.Router) {
			r.Post("/", rentalHandler.Rent)
			r.Get("/", rentalHandler.ListRentals)
			r.Post("/refresh", rentalHandler.RefreshRentals)
			r.Get("/{requestID}", rentalHandler.GetRental)
			r.Post("/{requestID}/refresh", rentalHandler.RefreshRental)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWTSecret, logger))
			r.Get("/me", authHandler.Me)
			r.Put("/me/quota", authHandler.UpdateQuota)
		})
	})

	return r
}
