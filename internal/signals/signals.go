package signals

import (
	"context"

	"papertrader/internal/models"
)

// Source генерирует торговые сигналы по снапшоту рынка.
// UpdateSentiment асинхронно освежает внутренний кэш сентимента,
// который учитывается при генерации.
type Source interface {
	Generate(ctx context.Context, snap models.Snapshot) []models.Signal
	UpdateSentiment(ctx context.Context)
}
