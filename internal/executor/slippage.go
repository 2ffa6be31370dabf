package executor

import (
	"math/rand"
	"sync"
)

// Проскальзывание ограничено диапазоном [0, 0.001).
const maxSlip = 0.001

type Slippage interface {
	Slip() float64
}

type randSlippage struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandSlippage(seed int64) Slippage {
	return &randSlippage{rnd: rand.New(rand.NewSource(seed))}
}

func (s *randSlippage) Slip() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() * maxSlip
}

// Fixed — детерминированный источник для тестов.
type Fixed float64

func (f Fixed) Slip() float64 {
	return float64(f)
}
