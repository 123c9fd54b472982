package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type ContentionConfig struct {
	BaseURL         string
	ConcurrentUsers int
	TotalStock      int
}

type PurchaseRequest struct {
	UserID      string `json:"userId"`
	FlashSaleID string `json:"flashSaleId"`
}

type PurchaseResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	PurchaseID     string `json:"purchaseId"`
	RemainingStock *int   `json:"remainingStock"`
}

type CreateSaleRequest struct {
	ProductName string    `json:"productName"`
	TotalStock  int       `json:"totalStock"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

type CreatedSale struct {
	ID string `json:"id"`
}

type ContentionResult struct {
	claimed       int64
	soldOut       int64
	duplicates    int64
	otherFailures int64
	mutex         sync.Mutex
	responseTimes []time.Duration
	purchaseIDs   map[string]string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Service base URL")
	users := flag.Int("users", 500, "Concurrent users")
	stock := flag.Int("stock", 100, "Sale stock")
	flag.Parse()

	cfg := &ContentionConfig{
		BaseURL:         *baseURL,
		ConcurrentUsers: *users,
		TotalStock:      *stock,
	}

	client := &http.Client{Timeout: 10 * time.Second}

	saleID, err := createSale(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create sale: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created sale %s with stock %d, firing %d users\n", saleID, cfg.TotalStock, cfg.ConcurrentUsers)

	result := &ContentionResult{
		responseTimes: make([]time.Duration, 0, cfg.ConcurrentUsers),
		purchaseIDs:   make(map[string]string),
	}

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < cfg.ConcurrentUsers; i++ {
		wg.Add(1)
		go func(userIdx int) {
			defer wg.Done()
			attemptPurchase(client, cfg, saleID, fmt.Sprintf("user-%d", userIdx), result)
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	report(cfg, result, elapsed)
}

func createSale(client *http.Client, cfg *ContentionConfig) (string, error) {
	now := time.Now().UTC()
	body, _ := json.Marshal(CreateSaleRequest{
		ProductName: "Contention Test Item",
		TotalStock:  cfg.TotalStock,
		StartTime:   now.Add(-time.Minute),
		EndTime:     now.Add(time.Hour),
	})

	resp, err := client.Post(cfg.BaseURL+"/admin/sales/", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var created CreatedSale
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func attemptPurchase(client *http.Client, cfg *ContentionConfig, saleID, userID string, result *ContentionResult) {
	body, _ := json.Marshal(PurchaseRequest{UserID: userID, FlashSaleID: saleID})

	start := time.Now()
	resp, err := client.Post(cfg.BaseURL+"/api/flashsale/purchase", "application/json", bytes.NewReader(body))
	elapsed := time.Since(start)

	if err != nil {
		atomic.AddInt64(&result.otherFailures, 1)
		return
	}
	defer resp.Body.Close()

	var purchaseResp PurchaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&purchaseResp); err != nil {
		atomic.AddInt64(&result.otherFailures, 1)
		return
	}

	result.mutex.Lock()
	result.responseTimes = append(result.responseTimes, elapsed)
	result.mutex.Unlock()

	switch {
	case purchaseResp.Success:
		atomic.AddInt64(&result.claimed, 1)
		result.mutex.Lock()
		if prev, ok := result.purchaseIDs[userID]; ok && prev != purchaseResp.PurchaseID {
			atomic.AddInt64(&result.duplicates, 1)
		}
		result.purchaseIDs[userID] = purchaseResp.PurchaseID
		result.mutex.Unlock()
	case purchaseResp.Message == "Item is sold out":
		atomic.AddInt64(&result.soldOut, 1)
	case purchaseResp.Message == "You have already purchased this item":
		atomic.AddInt64(&result.duplicates, 1)
	default:
		atomic.AddInt64(&result.otherFailures, 1)
	}
}

func report(cfg *ContentionConfig, result *ContentionResult, elapsed time.Duration) {
	claimed := atomic.LoadInt64(&result.claimed)

	fmt.Println("\n=== Contention Test Results ===")
	fmt.Printf("Duration:        %v\n", elapsed)
	fmt.Printf("Claimed:         %d\n", claimed)
	fmt.Printf("Sold out:        %d\n", atomic.LoadInt64(&result.soldOut))
	fmt.Printf("Duplicates:      %d\n", atomic.LoadInt64(&result.duplicates))
	fmt.Printf("Other failures:  %d\n", atomic.LoadInt64(&result.otherFailures))

	if len(result.responseTimes) > 0 {
		sort.Slice(result.responseTimes, func(i, j int) bool {
			return result.responseTimes[i] < result.responseTimes[j]
		})
		p50 := result.responseTimes[len(result.responseTimes)*50/100]
		p95 := result.responseTimes[len(result.responseTimes)*95/100]
		fmt.Printf("P50 latency:     %v\n", p50)
		fmt.Printf("P95 latency:     %v\n", p95)
	}

	if claimed > int64(cfg.TotalStock) {
		fmt.Printf("\nFAIL: oversold, %d claims for %d stock\n", claimed, cfg.TotalStock)
		os.Exit(1)
	}
	fmt.Printf("\nOK: %d claims within stock of %d\n", claimed, cfg.TotalStock)
}
