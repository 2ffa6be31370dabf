package portfolio

import (
	"sync"

	"papertrader/internal/models"
)

// Журнал ограничен, старые записи вытесняются по FIFO.
const tradeLogCap = 1000

type TradeLog struct {
	mu      sync.Mutex
	entries []models.TradeLogEntry
}

func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

func (t *TradeLog) Append(entry models.TradeLogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, entry)
	if len(t.entries) > tradeLogCap {
		t.entries = t.entries[len(t.entries)-tradeLogCap:]
	}
}

// Recent возвращает до n последних записей, новые первыми.
func (t *TradeLog) Recent(n int) []models.TradeLogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n > len(t.entries) {
		n = len(t.entries)
	}
	result := make([]models.TradeLogEntry, 0, n)
	for i := len(t.entries) - 1; i >= len(t.entries)-n; i-- {
		result = append(result, t.entries[i])
	}
	return result
}

func (t *TradeLog) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
