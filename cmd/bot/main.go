package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrader/internal/alerts"
	"papertrader/internal/config"
	"papertrader/internal/engine"
	"papertrader/internal/executor"
	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/portfolio"
	"papertrader/internal/risk"
	"papertrader/internal/server"
	"papertrader/internal/signals"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	log.Info("Бот запущен.")

	var src market.Source
	if cfg.Runtime.DryRun {
		src = market.NewSim(cfg.Engine.Pairs, cfg.Runtime.SimPrices, cfg.Runtime.Seed)
		log.Info("Dry-run: котировки симулируются.")
	} else {
		src = market.NewBybit(cfg.Exchange.BaseUrl, cfg.Engine.Pairs, log)
	}

	sink := alerts.New(log)
	ledger := portfolio.NewLedger(cfg.Engine.InitialBalance, cfg.Engine.TargetAllocations)
	governor := risk.New(risk.Limits{
		RiskPerTrade:        cfg.Risk.RiskPerTrade,
		StopLoss:            cfg.Risk.StopLoss,
		MaxPositionFraction: cfg.Risk.MaxPositionFraction,
		MinPairs:            cfg.Risk.MinPairs,
		DrawdownLimit:       cfg.Risk.DrawdownLimit,
		RebalanceThreshold:  cfg.Risk.RebalanceThreshold,
	}, ledger)
	exec := executor.New(ledger, executor.NewRandSlippage(cfg.Runtime.Seed), log)
	sig := signals.NewMomentum(cfg.Runtime.Seed, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(cfg, log, src, sig, sink, ledger, governor, exec, engine.NewHub())
	if err := eng.Start(ctx); err != nil {
		log.WithError(err).Fatal("Движок не запустился.")
	}

	srv := server.New(ctx, cfg.Server.Addr, eng, ledger, sink, log)
	go func() {
		if err := srv.Run(); err != nil {
			log.WithError(err).Fatal("Панель управления завершилась с ошибкой.")
		}
	}()

	<-sigCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Панель управления не завершилась корректно.")
	}
	eng.Stop()

	log.Info("Бот остановлен.")
}
