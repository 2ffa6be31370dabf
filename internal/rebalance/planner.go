package rebalance

import (
	"math"
	"sort"

	"papertrader/internal/models"
)

type Order struct {
	Pair   string
	Side   models.Side
	Price  float64
	Amount float64
}

// Plan сравнивает текущее распределение с целевым и возвращает
// корректирующие ордера. Пары обходятся в лексикографическом порядке,
// чтобы план был воспроизводим. Покупка планируется только при наличии
// свободных средств на момент планирования; исполнитель повторно
// проверяет средства при применении.
func Plan(snap models.Snapshot, view models.PortfolioView, threshold float64) []Order {
	equity := view.Balance
	for pair, pos := range view.Positions {
		price := pos.AvgEntryPrice
		if ticker, ok := snap[pair]; ok && ticker.Last > 0 {
			price = ticker.Last
		}
		equity += pos.Amount * price
	}
	if equity <= 0 {
		return nil
	}

	pairs := make([]string, 0, len(view.TargetAllocations))
	for pair := range view.TargetAllocations {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	var orders []Order
	for _, pair := range pairs {
		ticker, ok := snap[pair]
		if !ok || ticker.Last <= 0 {
			continue
		}

		targetValue := equity * view.TargetAllocations[pair]
		currentValue := 0.0
		if pos, held := view.Positions[pair]; held {
			currentValue = pos.Amount * ticker.Last
		}

		deviation := math.Abs(currentValue-targetValue) / equity
		if deviation <= threshold {
			continue
		}

		if currentValue > targetValue {
			orders = append(orders, Order{
				Pair:   pair,
				Side:   models.SideSell,
				Price:  ticker.Last,
				Amount: (currentValue - targetValue) / ticker.Last,
			})
			continue
		}

		deficit := targetValue - currentValue
		if view.Balance < deficit {
			continue
		}
		orders = append(orders, Order{
			Pair:   pair,
			Side:   models.SideBuy,
			Price:  ticker.Last,
			Amount: deficit / ticker.Last,
		})
	}

	return orders
}
