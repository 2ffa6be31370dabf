package portfolio

import (
	"errors"
	"math"
	"sync"

	"papertrader/internal/models"
)

// Позиция с объёмом ниже Epsilon считается закрытой.
const Epsilon = 1e-6

var (
	ErrInsufficientFunds    = errors.New("Недостаточно свободных средств.")
	ErrInsufficientPosition = errors.New("Недостаточный объём позиции.")
)

type Ledger struct {
	mu sync.RWMutex

	balance        float64
	initialBalance float64
	positions      map[string]models.Position
	pnl            float64
	drawdown       float64
	maxDrawdown    float64
	totalTrades    int
	winningTrades  int
	winRate        float64
	sharpeRatio    float64
	targets        map[string]float64

	log *TradeLog
}

func NewLedger(initialBalance float64, targets map[string]float64) *Ledger {
	if targets == nil {
		targets = map[string]float64{}
	}
	return &Ledger{
		balance:        initialBalance,
		initialBalance: initialBalance,
		positions:      map[string]models.Position{},
		targets:        targets,
		log:            NewTradeLog(),
	}
}

// Valuate пересчитывает equity, просадку и PnL по снапшоту рынка.
// Позиции без цены в снапшоте оцениваются по средней цене входа.
// Пик считается как max(initialBalance, equity) — метрика "потери от старта".
func (l *Ledger) Valuate(snap models.Snapshot) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	equity := l.balance
	for pair, pos := range l.positions {
		price := pos.AvgEntryPrice
		if ticker, ok := snap[pair]; ok && ticker.Last > 0 {
			price = ticker.Last
		}
		equity += pos.Amount * price
	}

	peak := math.Max(l.initialBalance, equity)
	l.drawdown = 0
	if peak > 0 {
		l.drawdown = (peak - equity) / peak
	}
	if l.drawdown > l.maxDrawdown {
		l.maxDrawdown = l.drawdown
	}
	l.pnl = equity - l.initialBalance

	return equity
}

// ApplyBuy списывает средства и пересчитывает средневзвешенную цену входа.
// При нехватке средств состояние не меняется.
func (l *Ledger) ApplyBuy(pair string, price, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := price * amount
	if l.balance < cost {
		return ErrInsufficientFunds
	}

	l.balance -= cost
	pos := l.positions[pair]
	newAmount := pos.Amount + amount
	pos.AvgEntryPrice = (pos.Amount*pos.AvgEntryPrice + cost) / newAmount
	pos.Amount = newAmount
	l.positions[pair] = pos

	return nil
}

// ApplySell зачисляет выручку, фиксирует PnL и статистику сделок.
// При нехватке объёма состояние не меняется.
func (l *Ledger) ApplySell(pair string, price, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, held := l.positions[pair]
	if !held || pos.Amount < amount {
		return 0, ErrInsufficientPosition
	}

	l.balance += price * amount
	realized := (price - pos.AvgEntryPrice) * amount
	l.pnl += realized

	l.totalTrades++
	if realized > 0 {
		l.winningTrades++
	}
	l.winRate = float64(l.winningTrades) / float64(l.totalTrades) * 100
	l.sharpeRatio = 1.5 + (l.winRate-50)*0.05

	pos.Amount -= amount
	if pos.Amount <= Epsilon {
		delete(l.positions, pair)
	} else {
		l.positions[pair] = pos
	}

	return realized, nil
}

func (l *Ledger) Balance() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

func (l *Ledger) Drawdown() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.drawdown
}

func (l *Ledger) MaxDrawdown() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxDrawdown
}

func (l *Ledger) Position(pair string) (models.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[pair]
	return pos, ok
}

func (l *Ledger) NumPositions() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// View возвращает согласованную копию портфеля для конкурентных читателей.
func (l *Ledger) View() models.PortfolioView {
	l.mu.RLock()
	defer l.mu.RUnlock()

	positions := make(map[string]models.Position, len(l.positions))
	for pair, pos := range l.positions {
		positions[pair] = pos
	}
	targets := make(map[string]float64, len(l.targets))
	for pair, fraction := range l.targets {
		targets[pair] = fraction
	}

	return models.PortfolioView{
		Balance:           l.balance,
		InitialBalance:    l.initialBalance,
		Positions:         positions,
		PnL:               l.pnl,
		Drawdown:          l.drawdown,
		MaxDrawdown:       l.maxDrawdown,
		TotalTrades:       l.totalTrades,
		WinningTrades:     l.winningTrades,
		WinRate:           l.winRate,
		SharpeRatio:       l.sharpeRatio,
		TargetAllocations: targets,
	}
}

func (l *Ledger) AppendTrade(entry models.TradeLogEntry) {
	l.log.Append(entry)
}

func (l *Ledger) RecentTrades(n int) []models.TradeLogEntry {
	return l.log.Recent(n)
}

func (l *Ledger) TradeCount() int {
	return l.log.Len()
}
