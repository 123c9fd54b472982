package scheduler

import (
	"context"
	"time"

	"github.com/ybolotov/flashsale-service/internal/application/use_cases"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

// Sweeper periodically removes sales whose window has closed, keeping the
// sale index from growing without bound. Purchase markers and ledger rows
// are not touched.
type Sweeper struct {
	saleUseCase *use_cases.SaleUseCase
	log         *logger.Logger
	interval    time.Duration
	stopChan    chan struct{}
}

func NewSweeper(saleUseCase *use_cases.SaleUseCase, log *logger.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		saleUseCase: saleUseCase,
		log:         log,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("Starting expiry sweeper", "interval", s.interval.String())

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Expiry sweeper stopped")
			return
		case <-s.stopChan:
			s.log.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.saleUseCase.SweepExpired(ctx)
	if err != nil {
		s.log.Error("Sweep failed", "error", err.Error())
		return
	}

	for _, id := range swept {
		monitoring.ForgetSale(id)
		monitoring.SalesSweptTotal.Inc()
	}

	if len(swept) > 0 {
		s.log.Info("Swept expired sales", "count", len(swept))
	}
}
