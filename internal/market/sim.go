package market

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"papertrader/internal/models"
)

const defaultSimPrice = 100.0

// SimSource — детерминированное случайное блуждание цен для dry-run
// и тестов. Один seed — одна и та же последовательность снапшотов.
type SimSource struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	prices map[string]float64
	order  []string
}

func NewSim(pairs []string, startPrices map[string]float64, seed int64) *SimSource {
	prices := make(map[string]float64, len(pairs))
	order := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		price := startPrices[pair]
		if price <= 0 {
			price = defaultSimPrice
		}
		prices[pair] = price
		order = append(order, pair)
	}
	sort.Strings(order)
	return &SimSource{
		rnd:    rand.New(rand.NewSource(seed)),
		prices: prices,
		order:  order,
	}
}

func (s *SimSource) Connect(ctx context.Context) error {
	return nil
}

func (s *SimSource) FetchSnapshot(ctx context.Context) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	snap := make(models.Snapshot, len(s.order))
	for _, pair := range s.order {
		price := s.prices[pair] * (1 + (s.rnd.Float64()-0.5)*0.004)
		s.prices[pair] = price
		snap[pair] = models.Ticker{
			Pair:      pair,
			Last:      price,
			Bid:       price * 0.9995,
			Ask:       price * 1.0005,
			Volume:    s.rnd.Float64() * 1000,
			Timestamp: now,
		}
	}
	return snap
}

func (s *SimSource) Close() {}
