package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ybolotov/flashsale-service/internal/application/use_cases"
	"github.com/ybolotov/flashsale-service/internal/config"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/http/handlers"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/http/middleware"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

type Server struct {
	server          *http.Server
	cfg             *config.Config
	log             *logger.Logger
	healthHandler   *handlers.HealthHandler
	saleHandler     *handlers.SaleHandler
	purchaseHandler *handlers.PurchaseHandler
	adminHandler    *handlers.AdminHandler
	rateLimiter     *middleware.RateLimiter
}

func NewServer(
	cfg *config.Config,
	db *sql.DB,
	redisClient *goredis.Client,
	reserveUseCase *use_cases.ReserveUseCase,
	saleUseCase *use_cases.SaleUseCase,
	log *logger.Logger,
) *Server {
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		server:          server,
		cfg:             cfg,
		log:             log,
		healthHandler:   handlers.NewHealthHandler(db, redisClient, log),
		saleHandler:     handlers.NewSaleHandler(saleUseCase, log),
		purchaseHandler: handlers.NewPurchaseHandler(reserveUseCase, log),
		adminHandler:    handlers.NewAdminHandler(saleUseCase, log),
		rateLimiter:     middleware.NewRateLimiter(redisClient, log, cfg.RateLimit.Window, cfg.RateLimit.Requests),
	}
}

func (s *Server) ListenAndServe() error {
	s.server.Handler = s.setupRoutes()

	s.log.Info("Starting HTTP server", "address", s.server.Addr)

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
