package sale

import (
	"errors"
	"time"
)

type Sale struct {
	ID             string    `json:"id"`
	ProductName    string    `json:"product_name"`
	TotalStock     int       `json:"total_stock"`
	RemainingStock int       `json:"remaining_stock"` // display cache; the stock counter key is authoritative
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	MaxPerUser     int       `json:"max_purchase_per_user"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewSale(id, productName string, totalStock int, startTime, endTime time.Time) (*Sale, error) {
	if id == "" {
		return nil, errors.New("sale id cannot be empty")
	}

	if productName == "" {
		return nil, errors.New("product name cannot be empty")
	}

	if totalStock <= 0 {
		return nil, errors.New("total stock must be greater than zero")
	}

	if startTime.After(endTime) {
		return nil, errors.New("start time must not be after end time")
	}

	return &Sale{
		ID:             id,
		ProductName:    productName,
		TotalStock:     totalStock,
		RemainingStock: totalStock,
		StartTime:      startTime,
		EndTime:        endTime,
		MaxPerUser:     1,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (s *Sale) Expired(now time.Time) bool {
	return s.EndTime.Before(now)
}
