package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertrader/internal/alerts"
	"papertrader/internal/config"
	"papertrader/internal/executor"
	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/models"
	"papertrader/internal/portfolio"
	"papertrader/internal/rebalance"
	"papertrader/internal/risk"
	"papertrader/internal/signals"
)

// Engine — планировщик торгового цикла. Состояния HALTED ⇄ RUNNING,
// тики идут в одной горутине и не перекрываются: портфель мутирует
// только активный тик.
type Engine struct {
	cfg      *config.Config
	log      *logger.Logger
	market   market.Source
	signals  signals.Source
	alerts   *alerts.Sink
	ledger   *portfolio.Ledger
	governor *risk.Governor
	executor *executor.Executor
	hub      *Hub

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastSnap models.Snapshot
}

func New(cfg *config.Config, log *logger.Logger, src market.Source, sig signals.Source, sink *alerts.Sink, ledger *portfolio.Ledger, governor *risk.Governor, exec *executor.Executor, hub *Hub) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      log,
		market:   src,
		signals:  sig,
		alerts:   sink,
		ledger:   ledger,
		governor: governor,
		executor: exec,
		hub:      hub,
		lastSnap: models.Snapshot{},
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start переводит движок в RUNNING и запускает цикл тиков.
// Повторный вызов в RUNNING — no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.running = true
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	if err := e.market.Connect(runCtx); err != nil {
		e.logEntry().WithError(err).Warn("Не удалось подключить источник котировок.")
		e.alerts.Send("market_data", fmt.Sprintf("Источник котировок недоступен: %v", err), models.SeverityWarning)
	}

	e.logEntry().WithField("interval", e.cfg.Engine.Interval.String()).Info("Движок запущен.")
	go e.loop(runCtx, done)
	return nil
}

// Stop переводит движок в HALTED и дожидается завершения текущего тика.
// Повторный вызов в HALTED — no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.done
	e.running = false
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	cancel()
	<-done
	e.market.Close()
	e.logEntry().Info("Движок остановлен.")
}

func (e *Engine) Toggle(ctx context.Context) {
	if e.Running() {
		e.Stop()
		return
	}
	if err := e.Start(ctx); err != nil {
		e.logEntry().WithError(err).Error("Не удалось запустить движок.")
	}
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.Engine.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.Step(ctx) {
				return
			}
		}
	}
}

// Step выполняет один полный тик конвейера: снапшот → оценка портфеля →
// проверка просадки → ребаланс → сигналы → исполнение → рассылка.
// Возвращает true, если сработал стоп по просадке и цикл нужно прервать.
// Любая другая ошибка гасится на границе тика, цикл продолжается.
func (e *Engine) Step(ctx context.Context) (halted bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logEntry().WithField("panic", r).Error("Тик прерван паникой.")
			e.alerts.Send("tick_failure", fmt.Sprintf("Тик прерван: %v", r), models.SeverityWarning)
		}
	}()

	snap := e.market.FetchSnapshot(ctx)
	e.mu.Lock()
	e.lastSnap = snap
	e.mu.Unlock()

	equity := e.ledger.Valuate(snap)
	drawdown := e.ledger.Drawdown()
	limit := e.governor.Limits().DrawdownLimit

	// Без дебаунса: предупреждение повторяется каждый тик, пока условие держится.
	if drawdown >= 0.8*limit {
		e.alerts.Send("drawdown", fmt.Sprintf("Просадка %.2f%% приближается к лимиту %.2f%%.", drawdown*100, limit*100), models.SeverityWarning)
	}

	if e.governor.ShouldShutdown() {
		e.logEntry().WithFields(map[string]interface{}{
			"drawdown": drawdown,
			"limit":    limit,
			"equity":   equity,
		}).Error("Сработал стоп по просадке, торговля остановлена.")
		e.alerts.Send("drawdown", fmt.Sprintf("Просадка %.2f%% превысила лимит %.2f%%, торговля остановлена.", drawdown*100, limit*100), models.SeverityCritical)
		e.halt()
		e.broadcast(snap)
		return true
	}

	orders := rebalance.Plan(snap, e.ledger.View(), e.governor.Limits().RebalanceThreshold)
	for _, order := range orders {
		if _, err := e.executor.Execute(order.Pair, order.Side, order.Price, order.Amount); err != nil {
			e.logEntry().WithError(err).WithField("pair", order.Pair).Warn("Ребаланс-ордер отклонён.")
		}
	}

	for _, signal := range e.signals.Generate(ctx, snap) {
		if signal.Action == models.ActionHold {
			continue
		}
		size := e.governor.SizePosition(signal.Pair, signal.Price)
		if size <= 0 {
			continue
		}
		side := models.SideBuy
		if signal.Action == models.ActionSell {
			side = models.SideSell
		}
		if _, err := e.executor.Execute(signal.Pair, side, signal.Price, size); err != nil {
			e.logEntry().WithError(err).WithField("pair", signal.Pair).Debug("Сигнальный ордер отклонён.")
		}
	}

	go e.signals.UpdateSentiment(ctx)

	e.logEntry().WithFields(map[string]interface{}{
		"equity":    equity,
		"drawdown":  drawdown,
		"rebalance": len(orders),
	}).Debug("tick")

	e.broadcast(snap)
	return false
}

// halt — остановка изнутри тика: не ждёт done, иначе цикл заблокирует сам себя.
func (e *Engine) halt() {
	e.mu.Lock()
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.market.Close()
}

func (e *Engine) broadcast(snap models.Snapshot) {
	e.hub.Publish(e.snapshotState(snap, 10, 5))
}

// Attach подключает нового подписчика; первым сообщением он получает
// расширенный снапшот состояния.
func (e *Engine) Attach() (<-chan models.StateUpdate, func()) {
	e.mu.Lock()
	snap := e.lastSnap
	e.mu.Unlock()
	return e.hub.Subscribe(16, e.snapshotState(snap, 50, 20))
}

func (e *Engine) snapshotState(snap models.Snapshot, nTrades, nAlerts int) models.StateUpdate {
	return models.StateUpdate{
		Running:      e.Running(),
		Portfolio:    e.ledger.View(),
		Market:       snap,
		RecentTrades: e.ledger.RecentTrades(nTrades),
		RecentAlerts: e.alerts.Recent(nAlerts),
	}
}

