package use_cases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ybolotov/flashsale-service/internal/application/ports"
	domainErrors "github.com/ybolotov/flashsale-service/internal/domain/errors"
	"github.com/ybolotov/flashsale-service/internal/domain/sale"
	"github.com/ybolotov/flashsale-service/internal/pkg/clock"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

// ReserveUseCase runs the reservation protocol: precondition checks against
// the derived status, then a single store-side atomic check-and-mutate over
// the stock counter and the user purchase marker. All contention is resolved
// by the store; there is no client-side locking or retry.
type ReserveUseCase struct {
	store  ports.SaleStore
	ledger ports.PurchaseLedger
	filter ports.PairFilter
	clock  clock.Clock
	log    *logger.Logger
}

func NewReserveUseCase(
	store ports.SaleStore,
	ledger ports.PurchaseLedger,
	filter ports.PairFilter,
	clk clock.Clock,
	log *logger.Logger,
) *ReserveUseCase {
	return &ReserveUseCase{
		store:  store,
		ledger: ledger,
		filter: filter,
		clock:  clk,
		log:    log,
	}
}

type ReserveResult struct {
	PurchaseID     string
	RemainingStock int
}

func (uc *ReserveUseCase) Reserve(ctx context.Context, saleID, userID string) (*ReserveResult, error) {
	s, err := uc.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	stock, err := uc.store.GetStock(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading stock counter: %v", domainErrors.ErrStoreUnavailable, err)
	}
	if stock < 0 {
		uc.log.Error("Stock counter observed negative", "sale_id", saleID, "stock", stock)
		return nil, domainErrors.ErrInvariantViolation
	}

	now := uc.clock.Now()
	switch sale.ComputeStatus(now, s.StartTime, s.EndTime, stock) {
	case sale.StatusUpcoming:
		return nil, domainErrors.ErrSaleNotStarted
	case sale.StatusEnded:
		return nil, domainErrors.ErrSaleEnded
	case sale.StatusSoldOut:
		return nil, domainErrors.ErrSaleSoldOut
	}

	// Fast path: a bloom hit alone never rejects, it only triggers the exact
	// marker read. A miss proves the pair has not purchased.
	if hit, ferr := uc.filter.Contains(ctx, saleID, userID); ferr != nil {
		uc.log.Warn("Pair filter check failed", "error", ferr.Error(), "sale_id", saleID, "user_id", userID)
	} else if hit {
		purchaseID, merr := uc.store.GetUserPurchaseID(ctx, saleID, userID)
		if merr != nil {
			return nil, fmt.Errorf("%w: reading purchase marker: %v", domainErrors.ErrStoreUnavailable, merr)
		}
		if purchaseID != "" {
			return nil, domainErrors.ErrAlreadyPurchased
		}
	}

	purchaseID := uuid.NewString()

	res, err := uc.store.Reserve(ctx, saleID, userID, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: atomic reservation: %v", domainErrors.ErrStoreUnavailable, err)
	}

	switch res.Outcome {
	case sale.ReservationAlreadyClaimed:
		if ferr := uc.filter.Add(ctx, saleID, userID); ferr != nil {
			uc.log.Warn("Pair filter add failed", "error", ferr.Error(), "sale_id", saleID, "user_id", userID)
		}
		return nil, domainErrors.ErrAlreadyPurchased
	case sale.ReservationSoldOut:
		return nil, domainErrors.ErrSaleSoldOut
	}

	if res.NewStock < 0 {
		uc.log.Error("Atomic step returned negative stock", "sale_id", saleID, "new_stock", res.NewStock)
		return nil, domainErrors.ErrInvariantViolation
	}

	purchase, err := sale.NewPurchase(purchaseID, userID, saleID, now)
	if err != nil {
		return nil, err
	}

	if err := uc.ledger.Append(ctx, purchase); err != nil {
		// The claim stands: the marker is the source of truth for the pair.
		uc.log.Error("Ledger append failed after claim",
			"error", err.Error(), "purchase_id", purchaseID, "sale_id", saleID, "user_id", userID)
		return nil, fmt.Errorf("%w: ledger append: %v", domainErrors.ErrStoreUnavailable, err)
	}

	if ferr := uc.filter.Add(ctx, saleID, userID); ferr != nil {
		uc.log.Warn("Pair filter add failed", "error", ferr.Error(), "sale_id", saleID, "user_id", userID)
	}

	// Display-only refresh of the cached field; never consulted for claims.
	if rerr := uc.store.RefreshCachedStock(ctx, saleID, res.NewStock); rerr != nil {
		uc.log.Warn("Cached stock refresh failed", "error", rerr.Error(), "sale_id", saleID)
	}

	uc.log.Info("Reservation claimed",
		"sale_id", saleID, "user_id", userID, "purchase_id", purchaseID, "remaining_stock", res.NewStock)

	return &ReserveResult{
		PurchaseID:     purchaseID,
		RemainingStock: res.NewStock,
	}, nil
}
