package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/http/middleware"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
)

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(s.log))
	r.Use(middleware.NewLoggingMiddleware(s.log))
	r.Use(monitoring.WrapHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(timeoutMiddleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", s.healthHandler.HandleHealth)

	r.Route("/api/flashsale", func(r chi.Router) {
		r.Get("/status/{id}", s.saleHandler.HandleGetStatus)
		r.Get("/all", s.saleHandler.HandleListSales)
		r.Get("/latest-active", s.saleHandler.HandleGetLatestActiveSale)
		r.Get("/user/{userId}/purchase/{flashSaleId}", s.saleHandler.HandleGetUserPurchase)
		r.Get("/purchases/{id}", s.saleHandler.HandleGetPurchase)

		r.With(s.rateLimiter.Middleware).Post("/purchase", s.purchaseHandler.HandlePurchase)
	})

	r.Route("/admin/sales", func(r chi.Router) {
		r.Post("/", s.adminHandler.HandleCreateSale)
		r.Post("/sweep", s.adminHandler.HandleSweepExpired)
		r.Delete("/{id}", s.adminHandler.HandleDeleteSale)
	})

	return r
}

func timeoutMiddleware(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, 90*time.Second, "Request timeout")
}
