package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Engine   EngineConfig
	Risk     RiskConfig
	Exchange ExchangeConfig
	Server   ServerConfig
	Runtime  RuntimeConfig
}

type EngineConfig struct {
	Interval          time.Duration
	Pairs             []string
	InitialBalance    float64
	TargetAllocations map[string]float64
}

type RiskConfig struct {
	RiskPerTrade        float64
	StopLoss            float64
	MaxPositionFraction float64
	MinPairs            int
	DrawdownLimit       float64
	RebalanceThreshold  float64
}

type ExchangeConfig struct {
	BaseUrl string
}

type ServerConfig struct {
	Addr string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type RuntimeConfig struct {
	DryRun    bool
	Seed      int64
	SimPrices map[string]float64
	Log       LogConfig
}

func Load() (*Config, error) {

	cfg := &Config{}
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	viper.SetDefault("engine.interval", "1s")
	viper.SetDefault("engine.initial_balance", 100000.0)
	viper.SetDefault("risk.risk_per_trade", 0.01)
	viper.SetDefault("risk.stop_loss", 0.02)
	viper.SetDefault("risk.max_position_fraction", 0.15)
	viper.SetDefault("risk.min_pairs", 5)
	viper.SetDefault("risk.drawdown_limit", 0.10)
	viper.SetDefault("risk.rebalance_threshold", 0.05)
	viper.SetDefault("exchange.base_url", "https://api.bybit.com")
	viper.SetDefault("server.addr", ":8085")
	viper.SetDefault("runtime.seed", 1)

	cfg.Engine = EngineConfig{
		Interval:          viper.GetDuration("engine.interval"),
		Pairs:             viper.GetStringSlice("engine.pairs"),
		InitialBalance:    viper.GetFloat64("engine.initial_balance"),
		TargetAllocations: floatMap("engine.target_allocations"),
	}

	cfg.Risk = RiskConfig{
		RiskPerTrade:        viper.GetFloat64("risk.risk_per_trade"),
		StopLoss:            viper.GetFloat64("risk.stop_loss"),
		MaxPositionFraction: viper.GetFloat64("risk.max_position_fraction"),
		MinPairs:            viper.GetInt("risk.min_pairs"),
		DrawdownLimit:       viper.GetFloat64("risk.drawdown_limit"),
		RebalanceThreshold:  viper.GetFloat64("risk.rebalance_threshold"),
	}

	cfg.Exchange = ExchangeConfig{
		BaseUrl: viper.GetString("exchange.base_url"),
	}

	cfg.Server = ServerConfig{
		Addr: viper.GetString("server.addr"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun:    viper.GetBool("runtime.dry_run"),
		Seed:      viper.GetInt64("runtime.seed"),
		SimPrices: floatMap("runtime.sim_prices"),
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	return cfg, nil
}

// viper lowercases map keys, pairs are stored uppercase.
func floatMap(key string) map[string]float64 {
	raw := viper.GetStringMapString(key)
	result := make(map[string]float64, len(raw))
	for k, v := range raw {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		result[strings.ToUpper(k)] = parsed
	}
	return result
}
