package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrader/internal/models"
)

func snapWith(prices map[string]float64) models.Snapshot {
	snap := models.Snapshot{}
	for pair, price := range prices {
		snap[pair] = models.Ticker{Pair: pair, Last: price, Timestamp: time.Now()}
	}
	return snap
}

func TestLedgerValuate(t *testing.T) {
	t.Run("equity and pnl", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

		equity := l.Valuate(snapWith(map[string]float64{"BTCUSDT": 55000}))
		assert.InDelta(t, 105000, equity, 1e-9)
		assert.InDelta(t, 5000, l.View().PnL, 1e-9)
		assert.Zero(t, l.Drawdown())
	})

	t.Run("position without price valued at entry", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

		equity := l.Valuate(models.Snapshot{})
		assert.InDelta(t, 100000, equity, 1e-9)
		assert.Zero(t, l.Drawdown())
	})

	t.Run("drawdown measured from initial balance", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

		l.Valuate(snapWith(map[string]float64{"BTCUSDT": 40000}))
		assert.InDelta(t, 0.10, l.Drawdown(), 1e-9)
		assert.InDelta(t, -10000, l.View().PnL, 1e-9)
	})

	t.Run("max drawdown never decreases", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

		l.Valuate(snapWith(map[string]float64{"BTCUSDT": 40000}))
		require.InDelta(t, 0.10, l.MaxDrawdown(), 1e-9)

		l.Valuate(snapWith(map[string]float64{"BTCUSDT": 48000}))
		assert.InDelta(t, 0.02, l.Drawdown(), 1e-9)
		assert.InDelta(t, 0.10, l.MaxDrawdown(), 1e-9)

		l.Valuate(snapWith(map[string]float64{"BTCUSDT": 60000}))
		assert.Zero(t, l.Drawdown())
		assert.InDelta(t, 0.10, l.MaxDrawdown(), 1e-9)
	})

	t.Run("drawdown stays within unit interval", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

		for _, price := range []float64{70000, 30000, 100, 90000, 1} {
			l.Valuate(snapWith(map[string]float64{"BTCUSDT": price}))
			dd := l.Drawdown()
			assert.GreaterOrEqual(t, dd, 0.0)
			assert.LessOrEqual(t, dd, 1.0)
		}
	})
}

func TestLedgerApplyBuy(t *testing.T) {
	t.Run("weighted average entry", func(t *testing.T) {
		l := NewLedger(1000000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))
		require.NoError(t, l.ApplyBuy("BTCUSDT", 60000, 1))
		require.NoError(t, l.ApplyBuy("BTCUSDT", 40000, 2))

		pos, held := l.Position("BTCUSDT")
		require.True(t, held)
		assert.InDelta(t, 4.0, pos.Amount, 1e-9)
		// (50000 + 60000 + 80000) / 4
		assert.InDelta(t, 47500, pos.AvgEntryPrice, 1e-6)
	})

	t.Run("insufficient funds leaves state untouched", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))
		require.InDelta(t, 50000, l.Balance(), 1e-9)

		err := l.ApplyBuy("BTCUSDT", 60000, 1)
		require.ErrorIs(t, err, ErrInsufficientFunds)

		assert.InDelta(t, 50000, l.Balance(), 1e-9)
		pos, held := l.Position("BTCUSDT")
		require.True(t, held)
		assert.InDelta(t, 1.0, pos.Amount, 1e-9)
		assert.InDelta(t, 50000, pos.AvgEntryPrice, 1e-9)
	})

	t.Run("balance never negative", func(t *testing.T) {
		l := NewLedger(100, nil)
		for i := 0; i < 50; i++ {
			l.ApplyBuy("ETHUSDT", 30, 1)
			l.ApplySell("ETHUSDT", 25, 0.5)
			assert.GreaterOrEqual(t, l.Balance(), 0.0)
		}
	})
}

func TestLedgerApplySell(t *testing.T) {
	t.Run("realized pnl and stats", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

		realized, err := l.ApplySell("BTCUSDT", 55000, 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 2500, realized, 1e-9)

		view := l.View()
		assert.Equal(t, 1, view.TotalTrades)
		assert.Equal(t, 1, view.WinningTrades)
		assert.InDelta(t, 100, view.WinRate, 1e-9)
		assert.InDelta(t, 1.5+(100-50)*0.05, view.SharpeRatio, 1e-9)
	})

	t.Run("win rate exact after mixed trades", func(t *testing.T) {
		l := NewLedger(1000000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 3))

		_, err := l.ApplySell("BTCUSDT", 55000, 1)
		require.NoError(t, err)
		_, err = l.ApplySell("BTCUSDT", 45000, 1)
		require.NoError(t, err)
		_, err = l.ApplySell("BTCUSDT", 45000, 1)
		require.NoError(t, err)

		view := l.View()
		assert.Equal(t, 3, view.TotalTrades)
		assert.Equal(t, 1, view.WinningTrades)
		assert.InDelta(t, float64(1)/float64(3)*100, view.WinRate, 1e-9)
	})

	t.Run("win rate initial value before any sell", func(t *testing.T) {
		l := NewLedger(100000, nil)
		view := l.View()
		assert.Zero(t, view.TotalTrades)
		assert.Zero(t, view.WinRate)
	})

	t.Run("oversell fails and leaves state untouched", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))
		balance := l.Balance()

		_, err := l.ApplySell("BTCUSDT", 55000, 2)
		require.ErrorIs(t, err, ErrInsufficientPosition)

		assert.InDelta(t, balance, l.Balance(), 1e-9)
		pos, held := l.Position("BTCUSDT")
		require.True(t, held)
		assert.InDelta(t, 1.0, pos.Amount, 1e-9)
		assert.Zero(t, l.View().TotalTrades)
	})

	t.Run("sell of unknown pair fails", func(t *testing.T) {
		l := NewLedger(100000, nil)
		_, err := l.ApplySell("ETHUSDT", 3000, 1)
		require.ErrorIs(t, err, ErrInsufficientPosition)
	})

	t.Run("dust position removed", func(t *testing.T) {
		l := NewLedger(100000, nil)
		require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

		_, err := l.ApplySell("BTCUSDT", 50000, 1-1e-9)
		require.NoError(t, err)

		_, held := l.Position("BTCUSDT")
		assert.False(t, held)
		assert.Zero(t, l.NumPositions())
	})
}

func TestLedgerViewIsCopy(t *testing.T) {
	l := NewLedger(100000, map[string]float64{"BTCUSDT": 0.5})
	require.NoError(t, l.ApplyBuy("BTCUSDT", 50000, 1))

	view := l.View()
	view.Positions["BTCUSDT"] = models.Position{Amount: 99}
	view.TargetAllocations["BTCUSDT"] = 0.99

	pos, _ := l.Position("BTCUSDT")
	assert.InDelta(t, 1.0, pos.Amount, 1e-9)
	assert.InDelta(t, 0.5, l.View().TargetAllocations["BTCUSDT"], 1e-9)
}
