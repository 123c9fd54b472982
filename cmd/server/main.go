package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ybolotov/flashsale-service/internal/application/use_cases"
	"github.com/ybolotov/flashsale-service/internal/config"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/bloom"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/http/server"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/persistence/postgres"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/persistence/redis"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/scheduler"
	"github.com/ybolotov/flashsale-service/internal/pkg/clock"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

const purchasedPairsKey = "bloom:purchased_pairs"

func main() {
	log := logger.NewLogger()
	log.Info("Starting Flash Sale Service")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(cfg.Database, log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	redisConn, err := redis.NewConnection(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisConn.Close()

	redisClient := redisConn.GetClient()

	dbMetricsCollector := monitoring.NewDBMetricsCollector(db.GetDB())
	dbMetricsCollector.StartCollecting(context.Background(), 30*time.Second)

	store := redis.NewStore(redisConn, log)
	ledger := postgres.NewPurchaseRepository(db)

	m, k := bloom.GetOptimalParameters(1_000_000, 0.01)
	pairFilter := bloom.NewPurchasedPairFilter(redisClient, purchasedPairsKey, m, k)

	clk := clock.NewRealClock()

	reserveUseCase := use_cases.NewReserveUseCase(store, ledger, pairFilter, clk, log)
	saleUseCase := use_cases.NewSaleUseCase(store, ledger, clk, log)

	sweeper := scheduler.NewSweeper(saleUseCase, log, cfg.Sweeper.Interval)

	httpServer := server.NewServer(cfg, db.GetDB(), redisClient, reserveUseCase, saleUseCase, log)

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	go sweeper.Start(serverCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(serverCtx, cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info("Shutting down server...")
		sweeper.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}

		serverStopCtx()
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed", "error", err)
	}

	<-serverCtx.Done()
	log.Info("Server stopped")
}
