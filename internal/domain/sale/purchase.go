package sale

import (
	"errors"
	"time"
)

const PurchaseStatusConfirmed = "confirmed"

// Purchase is the immutable ledger record created once per successful
// reservation. There is no cancellation or refund path.
type Purchase struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SaleID    string    `json:"flashSaleId"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

func NewPurchase(id, userID, saleID string, at time.Time) (*Purchase, error) {
	if id == "" || userID == "" || saleID == "" {
		return nil, errors.New("purchase id, user id and sale id are required")
	}

	return &Purchase{
		ID:        id,
		UserID:    userID,
		SaleID:    saleID,
		Quantity:  1,
		Timestamp: at,
		Status:    PurchaseStatusConfirmed,
	}, nil
}
