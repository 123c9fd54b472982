package ports

import (
	"context"

	"github.com/ybolotov/flashsale-service/internal/domain/sale"
)

// SaleStore is the shared backing store for all mutable sale state. Every
// method is a bounded request/response against the store; Reserve is the only
// operation the store must execute as a single server-side atomic step.
type SaleStore interface {
	// CreateSale writes the sale record, initializes its stock counter to
	// TotalStock, and adds the id to the sale index.
	CreateSale(ctx context.Context, s *sale.Sale) error

	GetSale(ctx context.Context, id string) (*sale.Sale, error)
	GetStock(ctx context.Context, saleID string) (int, error)

	// RefreshCachedStock rewrites the informational remaining-stock field on
	// the sale record. Not part of any atomic step; display only.
	RefreshCachedStock(ctx context.Context, saleID string, remainingStock int) error

	// Reserve runs the atomic check-and-mutate: marker present ->
	// already claimed; counter <= 0 -> sold out; otherwise decrement the
	// counter by one and record purchaseID as the marker for (saleID, userID).
	Reserve(ctx context.Context, saleID, userID, purchaseID string) (sale.ReservationResult, error)

	// GetUserPurchaseID returns the purchase id recorded by the marker for
	// (saleID, userID), or "" when the user has not claimed a unit.
	GetUserPurchaseID(ctx context.Context, saleID, userID string) (string, error)

	// ListSaleIDs enumerates the sale index. Order is unspecified.
	ListSaleIDs(ctx context.Context) ([]string, error)

	// RemoveSale deletes the sale record, its stock counter, and its index
	// membership. Purchase markers are intentionally left in place.
	RemoveSale(ctx context.Context, saleID string) error
}
