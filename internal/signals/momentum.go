package signals

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"papertrader/internal/logger"
	"papertrader/internal/models"
)

const (
	windowSize = 20
	minWindow  = 5
	// Отклонение от SMA меньше порога считается шумом.
	deviationThreshold = 0.005
)

// Momentum — простая модель "возврата к среднему": цена заметно ниже
// скользящей средней — BUY, заметно выше — SELL, иначе HOLD.
// Сентимент хранится в кэше и подмешивается в уверенность сигнала.
type Momentum struct {
	mu        sync.Mutex
	window    map[string][]float64
	sentiment map[string]float64
	rnd       *rand.Rand
	log       *logger.Logger
}

func NewMomentum(seed int64, log *logger.Logger) *Momentum {
	return &Momentum{
		window:    map[string][]float64{},
		sentiment: map[string]float64{},
		rnd:       rand.New(rand.NewSource(seed)),
		log:       log,
	}
}

func (m *Momentum) Generate(ctx context.Context, snap models.Snapshot) []models.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairs := make([]string, 0, len(snap))
	for pair := range snap {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	signals := make([]models.Signal, 0, len(pairs))
	for _, pair := range pairs {
		price := snap[pair].Last
		if price <= 0 {
			continue
		}

		window := append(m.window[pair], price)
		if len(window) > windowSize {
			window = window[len(window)-windowSize:]
		}
		m.window[pair] = window

		signal := models.Signal{
			Pair:           pair,
			Action:         models.ActionHold,
			Price:          price,
			SentimentScore: m.sentiment[pair],
		}

		if len(window) >= minWindow {
			sum := 0.0
			for _, p := range window {
				sum += p
			}
			sma := sum / float64(len(window))
			deviation := (price - sma) / sma

			switch {
			case deviation < -deviationThreshold:
				signal.Action = models.ActionBuy
			case deviation > deviationThreshold:
				signal.Action = models.ActionSell
			}
			if signal.Action != models.ActionHold {
				signal.Confidence = m.confidence(pair, deviation)
			}
		}

		signals = append(signals, signal)
	}
	return signals
}

func (m *Momentum) confidence(pair string, deviation float64) float64 {
	base := clamp(math.Abs(deviation)*50, 0, 1)
	sentiment := (m.sentiment[pair] + 1) / 2
	return clamp(base*0.7+sentiment*0.3, 0, 1)
}

// UpdateSentiment — плейсхолдер вместо внешнего скрапера: случайное
// блуждание оценки в пределах [-1, 1].
func (m *Momentum) UpdateSentiment(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pair := range m.window {
		score := clamp(m.sentiment[pair]+(m.rnd.Float64()-0.5)*0.2, -1, 1)
		m.sentiment[pair] = score
	}
	m.log.WithComponent("signals").WithField("pairs", len(m.window)).Debug("Кэш сентимента обновлён.")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
