package bloom

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/redis/go-redis/v9"
)

// PurchasedPairFilter is a Redis-bit bloom filter over "saleID:userID" pairs
// that have completed a purchase. It is advisory: Contains may report false
// positives, so callers confirm a positive against the purchase marker before
// rejecting anything.
type PurchasedPairFilter struct {
	client *redis.Client
	key    string
	m      uint64 // size in bits
	k      uint64 // number of hash functions
}

func NewPurchasedPairFilter(client *redis.Client, key string, m, k uint64) *PurchasedPairFilter {
	return &PurchasedPairFilter{
		client: client,
		key:    key,
		m:      m,
		k:      k,
	}
}

func pairElement(saleID, userID string) string {
	return fmt.Sprintf("%s:%s", saleID, userID)
}

func (bf *PurchasedPairFilter) Add(ctx context.Context, saleID, userID string) error {
	hashes := bf.getHashes(pairElement(saleID, userID))

	pipe := bf.client.Pipeline()
	for i := uint64(0); i < bf.k; i++ {
		bitPos := hashes[i] % bf.m
		pipe.SetBit(ctx, bf.key, int64(bitPos), 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (bf *PurchasedPairFilter) Contains(ctx context.Context, saleID, userID string) (bool, error) {
	hashes := bf.getHashes(pairElement(saleID, userID))

	pipe := bf.client.Pipeline()
	cmds := make([]*redis.IntCmd, bf.k)

	for i := uint64(0); i < bf.k; i++ {
		bitPos := hashes[i] % bf.m
		cmds[i] = pipe.GetBit(ctx, bf.key, int64(bitPos))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false, nil
		}
	}

	return true, nil
}

func (bf *PurchasedPairFilter) Clear(ctx context.Context) error {
	return bf.client.Del(ctx, bf.key).Err()
}

func (bf *PurchasedPairFilter) getHashes(element string) []uint64 {
	hashes := make([]uint64, bf.k)

	h1 := bf.hash1(element)
	h2 := bf.hash2(element)

	for i := uint64(0); i < bf.k; i++ {
		hashes[i] = h1 + i*h2
	}

	return hashes
}

func (bf *PurchasedPairFilter) hash1(element string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(element))
	return h.Sum64()
}

func (bf *PurchasedPairFilter) hash2(element string) uint64 {
	h := sha256.Sum256([]byte(element))
	return binary.BigEndian.Uint64(h[:8])
}

func GetOptimalParameters(expectedElements uint64, falsePositiveRate float64) (m, k uint64) {
	mFloat := -float64(expectedElements) * math.Log(falsePositiveRate) / (math.Log(2) * math.Log(2))
	m = uint64(math.Ceil(mFloat))

	kFloat := (float64(m) / float64(expectedElements)) * math.Log(2)
	k = uint64(math.Round(kFloat))

	if k == 0 {
		k = 1
	}

	return m, k
}
