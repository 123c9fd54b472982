package use_cases

import (
	"context"
	"fmt"
	"sync"

	domainErrors "github.com/ybolotov/flashsale-service/internal/domain/errors"
	"github.com/ybolotov/flashsale-service/internal/domain/sale"
)

// fakeStore serializes Reserve with a mutex, mirroring the single-threaded
// execution guarantee of the real store's script.
type fakeStore struct {
	mu      sync.Mutex
	sales   map[string]*sale.Sale
	stock   map[string]int
	markers map[string]string

	reserveErr     error
	getStockErr    error
	refreshErr     error
	refreshedStock map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sales:          make(map[string]*sale.Sale),
		stock:          make(map[string]int),
		markers:        make(map[string]string),
		refreshedStock: make(map[string]int),
	}
}

func markerPair(saleID, userID string) string {
	return fmt.Sprintf("%s:%s", saleID, userID)
}

func (f *fakeStore) CreateSale(ctx context.Context, s *sale.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales[s.ID] = s
	f.stock[s.ID] = s.TotalStock
	return nil
}

func (f *fakeStore) GetSale(ctx context.Context, id string) (*sale.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sales[id]
	if !ok {
		return nil, domainErrors.ErrSaleNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) GetStock(ctx context.Context, saleID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getStockErr != nil {
		return 0, f.getStockErr
	}
	return f.stock[saleID], nil
}

func (f *fakeStore) RefreshCachedStock(ctx context.Context, saleID string, remainingStock int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.refreshedStock[saleID] = remainingStock
	if s, ok := f.sales[saleID]; ok {
		s.RemainingStock = remainingStock
	}
	return nil
}

func (f *fakeStore) Reserve(ctx context.Context, saleID, userID, purchaseID string) (sale.ReservationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reserveErr != nil {
		return sale.ReservationResult{}, f.reserveErr
	}

	if _, ok := f.markers[markerPair(saleID, userID)]; ok {
		return sale.ReservationResult{Outcome: sale.ReservationAlreadyClaimed}, nil
	}

	if f.stock[saleID] <= 0 {
		return sale.ReservationResult{Outcome: sale.ReservationSoldOut}, nil
	}

	f.stock[saleID]--
	f.markers[markerPair(saleID, userID)] = purchaseID

	return sale.ReservationResult{
		Outcome:  sale.ReservationClaimed,
		NewStock: f.stock[saleID],
	}, nil
}

func (f *fakeStore) GetUserPurchaseID(ctx context.Context, saleID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markers[markerPair(saleID, userID)], nil
}

func (f *fakeStore) ListSaleIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.sales))
	for id := range f.sales {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) RemoveSale(ctx context.Context, saleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sales[saleID]; !ok {
		return domainErrors.ErrSaleNotFound
	}
	delete(f.sales, saleID)
	delete(f.stock, saleID)
	return nil
}

func (f *fakeStore) markerCount(saleID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for pair := range f.markers {
		if len(pair) > len(saleID) && pair[:len(saleID)] == saleID {
			count++
		}
	}
	return count
}

type fakeLedger struct {
	mu        sync.Mutex
	purchases map[string]*sale.Purchase
	appendErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{purchases: make(map[string]*sale.Purchase)}
}

func (f *fakeLedger) Append(ctx context.Context, p *sale.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	copied := *p
	f.purchases[p.ID] = &copied
	return nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id string) (*sale.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return nil, domainErrors.ErrPurchaseNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purchases)
}

type fakeFilter struct {
	mu    sync.Mutex
	pairs map[string]bool

	forceHit    bool
	containsErr error
}

func newFakeFilter() *fakeFilter {
	return &fakeFilter{pairs: make(map[string]bool)}
}

func (f *fakeFilter) Add(ctx context.Context, saleID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs[markerPair(saleID, userID)] = true
	return nil
}

func (f *fakeFilter) Contains(ctx context.Context, saleID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.containsErr != nil {
		return false, f.containsErr
	}
	if f.forceHit {
		return true, nil
	}
	return f.pairs[markerPair(saleID, userID)], nil
}
