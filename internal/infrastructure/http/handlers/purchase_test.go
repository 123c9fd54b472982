package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybolotov/flashsale-service/internal/application/use_cases"
	domainErrors "github.com/ybolotov/flashsale-service/internal/domain/errors"
	"github.com/ybolotov/flashsale-service/internal/domain/sale"
	"github.com/ybolotov/flashsale-service/internal/pkg/clock"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

type memStore struct {
	mu      sync.Mutex
	sales   map[string]*sale.Sale
	stock   map[string]int
	markers map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		sales:   make(map[string]*sale.Sale),
		stock:   make(map[string]int),
		markers: make(map[string]string),
	}
}

func (m *memStore) CreateSale(ctx context.Context, s *sale.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[s.ID] = s
	m.stock[s.ID] = s.TotalStock
	return nil
}

func (m *memStore) GetSale(ctx context.Context, id string) (*sale.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, domainErrors.ErrSaleNotFound
	}
	return s, nil
}

func (m *memStore) GetStock(ctx context.Context, saleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[saleID], nil
}

func (m *memStore) RefreshCachedStock(ctx context.Context, saleID string, remainingStock int) error {
	return nil
}

func (m *memStore) Reserve(ctx context.Context, saleID, userID, purchaseID string) (sale.ReservationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pair := saleID + ":" + userID
	if _, ok := m.markers[pair]; ok {
		return sale.ReservationResult{Outcome: sale.ReservationAlreadyClaimed}, nil
	}
	if m.stock[saleID] <= 0 {
		return sale.ReservationResult{Outcome: sale.ReservationSoldOut}, nil
	}
	m.stock[saleID]--
	m.markers[pair] = purchaseID
	return sale.ReservationResult{Outcome: sale.ReservationClaimed, NewStock: m.stock[saleID]}, nil
}

func (m *memStore) GetUserPurchaseID(ctx context.Context, saleID, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markers[saleID+":"+userID], nil
}

func (m *memStore) ListSaleIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sales))
	for id := range m.sales {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) RemoveSale(ctx context.Context, saleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sales, saleID)
	delete(m.stock, saleID)
	return nil
}

type memLedger struct {
	mu        sync.Mutex
	purchases map[string]*sale.Purchase
}

func newMemLedger() *memLedger {
	return &memLedger{purchases: make(map[string]*sale.Purchase)}
}

func (m *memLedger) Append(ctx context.Context, p *sale.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases[p.ID] = p
	return nil
}

func (m *memLedger) GetByID(ctx context.Context, id string) (*sale.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, domainErrors.ErrPurchaseNotFound
	}
	return p, nil
}

type noopFilter struct{}

func (noopFilter) Add(ctx context.Context, saleID, userID string) error { return nil }
func (noopFilter) Contains(ctx context.Context, saleID, userID string) (bool, error) {
	return false, nil
}

func newPurchaseHandlerFixture(t *testing.T) (*PurchaseHandler, *memStore, *clock.MockClock) {
	t.Helper()

	store := newMemStore()
	ledger := newMemLedger()
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC))
	log := logger.NewLoggerWithOutput(io.Discard)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	s, err := sale.NewSale("sale-1", "Widget", 5, start, end)
	require.NoError(t, err)
	require.NoError(t, store.CreateSale(context.Background(), s))

	uc := use_cases.NewReserveUseCase(store, ledger, noopFilter{}, clk, log)
	return NewPurchaseHandler(uc, log), store, clk
}

func doPurchase(t *testing.T, handler *PurchaseHandler, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/flashsale/purchase", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.HandlePurchase(rec, req)
	return rec
}

func TestHandlePurchaseSuccess(t *testing.T) {
	handler, store, _ := newPurchaseHandlerFixture(t)

	rec := doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: "sale-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success        bool   `json:"success"`
		Message        string `json:"message"`
		PurchaseID     string `json:"purchaseId"`
		RemainingStock *int   `json:"remainingStock"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.PurchaseID)
	require.NotNil(t, resp.RemainingStock)
	assert.Equal(t, 4, *resp.RemainingStock)

	markerID, _ := store.GetUserPurchaseID(context.Background(), "sale-1", "user-1")
	assert.Equal(t, resp.PurchaseID, markerID)
}

func TestHandlePurchaseValidation(t *testing.T) {
	handler, _, _ := newPurchaseHandlerFixture(t)

	rec := doPurchase(t, handler, PurchaseRequest{UserID: "", FlashSaleID: "sale-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/flashsale/purchase", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	handler.HandlePurchase(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestHandlePurchaseBusinessRejections(t *testing.T) {
	handler, _, clk := newPurchaseHandlerFixture(t)

	clk.Set(time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	rec := doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: "sale-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sale has not started yet")

	clk.Set(time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	rec = doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: "sale-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sale has ended")

	clk.Set(time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC))
	rec = doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: "sale-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: "sale-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "You have already purchased this item")
}

func TestHandlePurchaseSaleNotFound(t *testing.T) {
	handler, _, _ := newPurchaseHandlerFixture(t)

	rec := doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFailureReasonBuckets(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{domainErrors.ErrSaleNotFound, "not_found"},
		{domainErrors.ErrSaleNotStarted, "not_started"},
		{domainErrors.ErrSaleEnded, "ended"},
		{domainErrors.ErrSaleSoldOut, "sold_out"},
		{domainErrors.ErrAlreadyPurchased, "already_purchased"},
		{domainErrors.ErrInvariantViolation, "invariant_violation"},
		{domainErrors.ErrStoreUnavailable, "store_fault"},
		{fmt.Errorf("wrapped: %w", domainErrors.ErrSaleSoldOut), "sold_out"},
		{stderrors.New("anything else"), "store_fault"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, failureReason(tt.err))
	}
}

func TestHandlePurchaseSoldOut(t *testing.T) {
	handler, store, _ := newPurchaseHandlerFixture(t)

	store.mu.Lock()
	store.stock["sale-1"] = 1
	store.mu.Unlock()

	rec := doPurchase(t, handler, PurchaseRequest{UserID: "user-1", FlashSaleID: "sale-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doPurchase(t, handler, PurchaseRequest{UserID: "user-2", FlashSaleID: "sale-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Item is sold out")

	var resp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}
