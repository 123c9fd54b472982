package ports

import (
	"context"

	"github.com/ybolotov/flashsale-service/internal/domain/sale"
)

// PurchaseLedger is the append-only store of confirmed purchases. Records
// outlive the sale that produced them.
type PurchaseLedger interface {
	Append(ctx context.Context, p *sale.Purchase) error
	GetByID(ctx context.Context, id string) (*sale.Purchase, error)
}
