package market

import (
	"context"

	"papertrader/internal/models"
)

// Source отдаёт снапшоты рынка по запросу. Контракт best-effort:
// при сбое источник возвращает последний известный кэш, не ошибку.
type Source interface {
	Connect(ctx context.Context) error
	FetchSnapshot(ctx context.Context) models.Snapshot
	Close()
}
