package executor

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"papertrader/internal/logger"
	"papertrader/internal/models"
	"papertrader/internal/portfolio"
)

type Executor struct {
	ledger *portfolio.Ledger
	slip   Slippage
	log    *logger.Logger
}

func New(ledger *portfolio.Ledger, slip Slippage, log *logger.Logger) *Executor {
	return &Executor{
		ledger: ledger,
		slip:   slip,
		log:    log,
	}
}

// Execute применяет симулированное исполнение с проскальзыванием.
// Каждая попытка, успешная или нет, попадает в журнал сделок;
// неуспешная попытка больше ничего в портфеле не меняет.
func (x *Executor) Execute(pair string, side models.Side, price, amount float64) (models.TradeLogEntry, error) {
	slip := x.slip.Slip()
	executed := price + price*slip
	if side == models.SideSell {
		executed = price - price*slip
	}

	entry := models.TradeLogEntry{
		ID:        ulid.Make().String(),
		Timestamp: time.Now(),
		Pair:      pair,
		Side:      side,
		Price:     executed,
		Amount:    amount,
		Status:    models.TradeExecuted,
	}

	var err error
	switch side {
	case models.SideBuy:
		err = x.ledger.ApplyBuy(pair, executed, amount)
	case models.SideSell:
		var realized float64
		realized, err = x.ledger.ApplySell(pair, executed, amount)
		if err == nil {
			entry.PnL = &realized
		}
	default:
		err = fmt.Errorf("Неизвестная сторона сделки: %q.", side)
	}

	if err != nil {
		entry.Status = models.TradeFailed
		x.ledger.AppendTrade(entry)
		x.log.WithTradeID(entry.ID).WithError(err).WithFields(map[string]interface{}{
			"pair":   pair,
			"side":   side,
			"price":  executed,
			"amount": amount,
		}).Warn("Сделка отклонена.")
		return entry, err
	}

	x.ledger.AppendTrade(entry)
	fields := map[string]interface{}{
		"pair":   pair,
		"side":   side,
		"price":  executed,
		"amount": amount,
		"slip":   slip,
	}
	if entry.PnL != nil {
		fields["pnl"] = *entry.PnL
	}
	x.log.WithTradeID(entry.ID).WithFields(fields).Info("Сделка исполнена.")
	return entry, nil
}
