package risk

import (
	"papertrader/internal/portfolio"
)

type Limits struct {
	RiskPerTrade        float64
	StopLoss            float64
	MaxPositionFraction float64
	MinPairs            int
	DrawdownLimit       float64
	RebalanceThreshold  float64
}

func DefaultLimits() Limits {
	return Limits{
		RiskPerTrade:        0.01,
		StopLoss:            0.02,
		MaxPositionFraction: 0.15,
		MinPairs:            5,
		DrawdownLimit:       0.10,
		RebalanceThreshold:  0.05,
	}
}

type Governor struct {
	limits Limits
	ledger *portfolio.Ledger
}

func New(limits Limits, ledger *portfolio.Ledger) *Governor {
	return &Governor{
		limits: limits,
		ledger: ledger,
	}
}

func (g *Governor) Limits() Limits {
	return g.limits
}

// SizePosition считает объём входа: риск на сделку делённый на дистанцию
// стопа, с ограничением доли депозита. Для новой пары при достаточной
// диверсификации объём режется вдвое (мягкий тормоз, не запрет).
func (g *Governor) SizePosition(pair string, price float64) float64 {
	if price <= 0 {
		return 0
	}

	balance := g.ledger.Balance()
	riskAmount := balance * g.limits.RiskPerTrade
	stopDistance := price * g.limits.StopLoss
	if stopDistance <= 0 {
		return 0
	}
	size := riskAmount / stopDistance

	if maxNotional := balance * g.limits.MaxPositionFraction; size*price > maxNotional {
		size = maxNotional / price
	}

	if _, held := g.ledger.Position(pair); !held && g.ledger.NumPositions() >= g.limits.MinPairs {
		size /= 2
	}

	return size
}

// ShouldShutdown — предикат аварийной остановки по просадке.
func (g *Governor) ShouldShutdown() bool {
	return g.ledger.Drawdown() >= g.limits.DrawdownLimit
}
