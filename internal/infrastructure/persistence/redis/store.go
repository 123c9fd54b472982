package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	domainErrors "github.com/ybolotov/flashsale-service/internal/domain/errors"
	"github.com/ybolotov/flashsale-service/internal/domain/sale"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

const saleIndexKey = "flashsale:ids"

// Store implements ports.SaleStore on Redis. The reservation step runs as a
// single Lua script so the marker check, the stock check and the decrement
// are indistinguishable from one operation to every other caller, including
// callers in separate processes.
type Store struct {
	client *redis.Client
	logger *logger.Logger

	reserveScript *redis.Script
}

func NewStore(conn *Connection, log *logger.Logger) *Store {
	client := monitoring.InstrumentRedisClient(conn.GetClient())

	return &Store{
		client:        client,
		logger:        log,
		reserveScript: redis.NewScript(reserveLuaScript),
	}
}

func saleKey(saleID string) string {
	return fmt.Sprintf("flashsale:%s", saleID)
}

func stockKey(saleID string) string {
	return fmt.Sprintf("stock:%s", saleID)
}

func markerKey(saleID, userID string) string {
	return fmt.Sprintf("user_purchase:%s:%s", saleID, userID)
}

func (s *Store) CreateSale(ctx context.Context, sl *sale.Sale) error {
	payload, err := json.Marshal(sl)
	if err != nil {
		return err
	}

	// Index membership is a set add, never a read-modify-write of a
	// serialized collection: concurrent creates must not drop entries.
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, saleKey(sl.ID), payload, 0)
	pipe.Set(ctx, stockKey(sl.ID), strconv.Itoa(sl.TotalStock), 0)
	pipe.SAdd(ctx, saleIndexKey, sl.ID)

	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) GetSale(ctx context.Context, id string) (*sale.Sale, error) {
	data, err := s.client.Get(ctx, saleKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domainErrors.ErrSaleNotFound
		}
		return nil, err
	}

	var sl sale.Sale
	if err := json.Unmarshal([]byte(data), &sl); err != nil {
		return nil, fmt.Errorf("corrupt sale record %s: %w", id, err)
	}

	return &sl, nil
}

func (s *Store) GetStock(ctx context.Context, saleID string) (int, error) {
	result, err := s.client.Get(ctx, stockKey(saleID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}

	return strconv.Atoi(result)
}

func (s *Store) RefreshCachedStock(ctx context.Context, saleID string, remainingStock int) error {
	sl, err := s.GetSale(ctx, saleID)
	if err != nil {
		return err
	}

	sl.RemainingStock = remainingStock

	payload, err := json.Marshal(sl)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, saleKey(saleID), payload, 0).Err()
}

func (s *Store) Reserve(ctx context.Context, saleID, userID, purchaseID string) (sale.ReservationResult, error) {
	keys := []string{stockKey(saleID), markerKey(saleID, userID)}

	raw, err := s.reserveScript.Run(ctx, s.client, keys, purchaseID).Result()
	if err != nil {
		return sale.ReservationResult{}, err
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 3 {
		return sale.ReservationResult{}, fmt.Errorf("unexpected reservation script reply: %v", raw)
	}

	success, _ := reply[0].(int64)
	newStock, _ := reply[1].(int64)
	reason, _ := reply[2].(string)

	if success == 1 {
		return sale.ReservationResult{
			Outcome:  sale.ReservationClaimed,
			NewStock: int(newStock),
		}, nil
	}

	switch reason {
	case "already_purchased":
		return sale.ReservationResult{Outcome: sale.ReservationAlreadyClaimed}, nil
	case "sold_out":
		return sale.ReservationResult{Outcome: sale.ReservationSoldOut}, nil
	default:
		return sale.ReservationResult{}, fmt.Errorf("unexpected reservation refusal: %q", reason)
	}
}

func (s *Store) GetUserPurchaseID(ctx context.Context, saleID, userID string) (string, error) {
	result, err := s.client.Get(ctx, markerKey(saleID, userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}

	return result, nil
}

func (s *Store) ListSaleIDs(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, saleIndexKey).Result()
}

func (s *Store) RemoveSale(ctx context.Context, saleID string) error {
	// Markers (user_purchase:*) and ledger rows are retained on purpose.
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, saleKey(saleID))
	pipe.Del(ctx, stockKey(saleID))
	pipe.SRem(ctx, saleIndexKey, saleID)

	_, err := pipe.Exec(ctx)
	return err
}

// reserveLuaScript is the atomic check-and-mutate: abort on an existing
// marker, abort on an exhausted counter, otherwise decrement and set the
// marker in the same step. Redis serializes script execution, so at most one
// caller wins the last unit.
const reserveLuaScript = `
	local existing = redis.call('GET', KEYS[2])
	if existing then
		return {0, -1, 'already_purchased'}
	end

	local stock = redis.call('GET', KEYS[1])
	if not stock or tonumber(stock) <= 0 then
		return {0, -1, 'sold_out'}
	end

	local new_stock = redis.call('DECR', KEYS[1])
	redis.call('SET', KEYS[2], ARGV[1])

	return {1, new_stock, 'success'}
`
