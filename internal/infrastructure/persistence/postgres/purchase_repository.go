package postgres

import (
	"context"
	"database/sql"

	domainErrors "github.com/ybolotov/flashsale-service/internal/domain/errors"
	"github.com/ybolotov/flashsale-service/internal/domain/sale"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
)

// PurchaseRepository is the append-only ledger of confirmed purchases.
// Rows are never updated or deleted and survive the deletion of their sale.
type PurchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(conn *Connection) *PurchaseRepository {
	return &PurchaseRepository{
		db: conn.GetDB(),
	}
}

func (r *PurchaseRepository) Append(ctx context.Context, p *sale.Purchase) error {
	query := `
		INSERT INTO purchases (id, user_id, sale_id, quantity, purchased_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := monitoring.InstrumentExec(ctx, r.db, "INSERT", "purchases", query,
		p.ID, p.UserID, p.SaleID, p.Quantity, p.Timestamp, p.Status,
	)

	return err
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*sale.Purchase, error) {
	query := `
		SELECT id, user_id, sale_id, quantity, purchased_at, status
		FROM purchases
		WHERE id = $1
	`

	var p sale.Purchase
	row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "purchases", query, id)
	err := row.Scan(&p.ID, &p.UserID, &p.SaleID, &p.Quantity, &p.Timestamp, &p.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainErrors.ErrPurchaseNotFound
		}
		return nil, err
	}

	return &p, nil
}
