package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrader/internal/logger"
	"papertrader/internal/models"
	"papertrader/internal/portfolio"
)

func newExecutor(balance float64, slip Slippage) (*Executor, *portfolio.Ledger) {
	ledger := portfolio.NewLedger(balance, nil)
	log := logger.New(logger.Config{Level: "error"})
	return New(ledger, slip, log), ledger
}

func TestExecuteBuy(t *testing.T) {
	t.Run("fill without slippage", func(t *testing.T) {
		x, ledger := newExecutor(100000, Fixed(0))

		entry, err := x.Execute("BTCUSDT", models.SideBuy, 50000, 1)
		require.NoError(t, err)
		assert.Equal(t, models.TradeExecuted, entry.Status)
		assert.InDelta(t, 50000, entry.Price, 1e-9)
		assert.Nil(t, entry.PnL)

		assert.InDelta(t, 50000, ledger.Balance(), 1e-9)
		pos, held := ledger.Position("BTCUSDT")
		require.True(t, held)
		assert.InDelta(t, 1.0, pos.Amount, 1e-9)
		assert.InDelta(t, 50000, pos.AvgEntryPrice, 1e-9)
	})

	t.Run("insufficient funds logged as failed", func(t *testing.T) {
		x, ledger := newExecutor(100000, Fixed(0))

		_, err := x.Execute("BTCUSDT", models.SideBuy, 50000, 1)
		require.NoError(t, err)

		// Баланс 50000 < 60000: отказ, состояние не меняется.
		entry, err := x.Execute("BTCUSDT", models.SideBuy, 60000, 1)
		require.ErrorIs(t, err, portfolio.ErrInsufficientFunds)
		assert.Equal(t, models.TradeFailed, entry.Status)

		assert.InDelta(t, 50000, ledger.Balance(), 1e-9)
		pos, _ := ledger.Position("BTCUSDT")
		assert.InDelta(t, 1.0, pos.Amount, 1e-9)

		trades := ledger.RecentTrades(10)
		require.Len(t, trades, 2)
		assert.Equal(t, models.TradeFailed, trades[0].Status)
		assert.Equal(t, models.TradeExecuted, trades[1].Status)
	})

	t.Run("buy slippage worsens price", func(t *testing.T) {
		x, ledger := newExecutor(100000, Fixed(0.0005))

		entry, err := x.Execute("BTCUSDT", models.SideBuy, 50000, 1)
		require.NoError(t, err)
		assert.InDelta(t, 50025, entry.Price, 1e-9)
		assert.InDelta(t, 100000-50025, ledger.Balance(), 1e-9)
	})
}

func TestExecuteSell(t *testing.T) {
	t.Run("realized pnl recorded", func(t *testing.T) {
		x, ledger := newExecutor(100000, Fixed(0))

		_, err := x.Execute("BTCUSDT", models.SideBuy, 50000, 1)
		require.NoError(t, err)

		entry, err := x.Execute("BTCUSDT", models.SideSell, 55000, 1)
		require.NoError(t, err)
		require.NotNil(t, entry.PnL)
		assert.InDelta(t, 5000, *entry.PnL, 1e-9)
		assert.InDelta(t, 105000, ledger.Balance(), 1e-9)
	})

	t.Run("sell slippage worsens price", func(t *testing.T) {
		x, _ := newExecutor(100000, Fixed(0.0005))

		_, err := x.Execute("BTCUSDT", models.SideBuy, 50000, 1)
		require.NoError(t, err)

		entry, err := x.Execute("BTCUSDT", models.SideSell, 50000, 1)
		require.NoError(t, err)
		assert.InDelta(t, 49975, entry.Price, 1e-9)
	})

	t.Run("oversell fails without mutation", func(t *testing.T) {
		x, ledger := newExecutor(100000, Fixed(0))

		entry, err := x.Execute("BTCUSDT", models.SideSell, 50000, 1)
		require.ErrorIs(t, err, portfolio.ErrInsufficientPosition)
		assert.Equal(t, models.TradeFailed, entry.Status)
		assert.Nil(t, entry.PnL)
		assert.InDelta(t, 100000, ledger.Balance(), 1e-9)
		assert.Equal(t, 1, ledger.TradeCount())
	})
}

func TestRandSlippageBounded(t *testing.T) {
	slip := NewRandSlippage(42)
	for i := 0; i < 1000; i++ {
		v := slip.Slip()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 0.001)
	}
}

func TestRandSlippageSeeded(t *testing.T) {
	a := NewRandSlippage(7)
	b := NewRandSlippage(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Slip(), b.Slip())
	}
}

func TestEntryIDsSortable(t *testing.T) {
	x, ledger := newExecutor(1000000, Fixed(0))
	for i := 0; i < 5; i++ {
		_, err := x.Execute("BTCUSDT", models.SideBuy, 100, 1)
		require.NoError(t, err)
	}
	trades := ledger.RecentTrades(5)
	for i := 0; i < len(trades)-1; i++ {
		// Recent отдаёт новые первыми, ULID растёт во времени.
		assert.GreaterOrEqual(t, trades[i].ID, trades[i+1].ID)
	}
}
