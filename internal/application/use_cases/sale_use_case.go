package use_cases

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ybolotov/flashsale-service/internal/application/ports"
	domainErrors "github.com/ybolotov/flashsale-service/internal/domain/errors"
	"github.com/ybolotov/flashsale-service/internal/domain/sale"
	"github.com/ybolotov/flashsale-service/internal/pkg/clock"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

// SaleUseCase covers the sale lifecycle: creation, status reads, enumeration,
// deletion and the expiry sweep. None of these touch the reservation
// protocol; status is always recomputed from the live counter and the clock.
type SaleUseCase struct {
	store  ports.SaleStore
	ledger ports.PurchaseLedger
	clock  clock.Clock
	log    *logger.Logger
}

func NewSaleUseCase(
	store ports.SaleStore,
	ledger ports.PurchaseLedger,
	clk clock.Clock,
	log *logger.Logger,
) *SaleUseCase {
	return &SaleUseCase{
		store:  store,
		ledger: ledger,
		clock:  clk,
		log:    log,
	}
}

func (uc *SaleUseCase) CreateSale(ctx context.Context, productName string, totalStock int, startTime, endTime time.Time) (*sale.Sale, error) {
	s, err := sale.NewSale(uuid.NewString(), productName, totalStock, startTime, endTime)
	if err != nil {
		return nil, err
	}

	if err := uc.store.CreateSale(ctx, s); err != nil {
		return nil, err
	}

	uc.log.Info("Sale created",
		"sale_id", s.ID, "product", s.ProductName, "total_stock", s.TotalStock,
		"start_time", s.StartTime, "end_time", s.EndTime)

	return s, nil
}

// GetSaleStatus composes the latest record, the live counter and the status
// calculator. The cached remaining-stock field on the record is ignored.
func (uc *SaleUseCase) GetSaleStatus(ctx context.Context, saleID string) (*sale.StatusView, error) {
	s, stock, err := uc.loadSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	view := sale.NewStatusView(s, uc.clock.Now(), stock)
	return &view, nil
}

// GetUserPurchase resolves (user, sale) through the purchase marker and then
// the ledger. Returns nil without error when the user has not purchased.
func (uc *SaleUseCase) GetUserPurchase(ctx context.Context, saleID, userID string) (*sale.Purchase, error) {
	purchaseID, err := uc.store.GetUserPurchaseID(ctx, saleID, userID)
	if err != nil {
		return nil, err
	}
	if purchaseID == "" {
		return nil, nil
	}

	purchase, err := uc.ledger.GetByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPurchaseNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return purchase, nil
}

func (uc *SaleUseCase) GetPurchase(ctx context.Context, purchaseID string) (*sale.Purchase, error) {
	return uc.ledger.GetByID(ctx, purchaseID)
}

// ListSales returns a status view per known sale, newest start time first.
// Sales deleted concurrently with the enumeration are skipped.
func (uc *SaleUseCase) ListSales(ctx context.Context) ([]sale.StatusView, error) {
	ids, err := uc.store.ListSaleIDs(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	views := make([]sale.StatusView, 0, len(ids))

	for _, id := range ids {
		s, stock, err := uc.loadSale(ctx, id)
		if err != nil {
			if errors.Is(err, domainErrors.ErrSaleNotFound) {
				continue
			}
			return nil, err
		}
		views = append(views, sale.NewStatusView(s, now, stock))
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].StartTime.After(views[j].StartTime)
	})

	return views, nil
}

// GetLatestActiveSale picks the active sale with the greatest start time.
func (uc *SaleUseCase) GetLatestActiveSale(ctx context.Context) (*sale.StatusView, error) {
	views, err := uc.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	for _, v := range views {
		if v.Status == sale.StatusActive {
			active := v
			return &active, nil
		}
	}

	return nil, domainErrors.ErrSaleNotFound
}

// DeleteSale removes the record, counter and index membership. Ledger rows
// and purchase markers are retained deliberately.
func (uc *SaleUseCase) DeleteSale(ctx context.Context, saleID string) error {
	if _, err := uc.store.GetSale(ctx, saleID); err != nil {
		return err
	}

	if err := uc.store.RemoveSale(ctx, saleID); err != nil {
		return err
	}

	uc.log.Info("Sale deleted", "sale_id", saleID)
	return nil
}

// SweepExpired retires every sale whose window has closed and returns the
// retired ids. Individual failures are logged and do not abort the sweep.
func (uc *SaleUseCase) SweepExpired(ctx context.Context) ([]string, error) {
	ids, err := uc.store.ListSaleIDs(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	deleted := make([]string, 0)

	for _, id := range ids {
		s, err := uc.store.GetSale(ctx, id)
		if err != nil {
			if errors.Is(err, domainErrors.ErrSaleNotFound) {
				continue
			}
			uc.log.Error("Sweep: failed to load sale", "error", err.Error(), "sale_id", id)
			continue
		}

		if !s.Expired(now) {
			continue
		}

		if err := uc.store.RemoveSale(ctx, id); err != nil {
			uc.log.Error("Sweep: failed to delete expired sale", "error", err.Error(), "sale_id", id)
			continue
		}

		deleted = append(deleted, id)
	}

	if len(deleted) > 0 {
		uc.log.Info("Expiry sweep completed", "deleted", len(deleted))
	}

	return deleted, nil
}

func (uc *SaleUseCase) loadSale(ctx context.Context, saleID string) (*sale.Sale, int, error) {
	s, err := uc.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, 0, err
	}

	stock, err := uc.store.GetStock(ctx, saleID)
	if err != nil {
		return nil, 0, err
	}

	return s, stock, nil
}
