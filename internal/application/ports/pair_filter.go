package ports

import (
	"context"
)

// PairFilter is an advisory membership filter over (saleID, userID) pairs
// that have already purchased. Contains may report false positives, so a
// positive must be confirmed against the authoritative marker before it is
// allowed to reject a claim.
type PairFilter interface {
	Add(ctx context.Context, saleID, userID string) error
	Contains(ctx context.Context, saleID, userID string) (bool, error)
}
