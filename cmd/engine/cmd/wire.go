package cmd

import (
	"fmt"
	"os"

	"github.com/ducminhle1904/options-risk-engine/internal/broker"
	"github.com/ducminhle1904/options-risk-engine/internal/config"
	"github.com/ducminhle1904/options-risk-engine/internal/engine"
	"github.com/ducminhle1904/options-risk-engine/internal/execution"
	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/marketdata"
	"github.com/ducminhle1904/options-risk-engine/internal/monitor"
	"github.com/ducminhle1904/options-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/options-risk-engine/internal/notifications"
	"github.com/ducminhle1904/options-risk-engine/internal/risk"
	"github.com/ducminhle1904/options-risk-engine/internal/sizing"
	"github.com/ducminhle1904/options-risk-engine/internal/storage"
	"github.com/ducminhle1904/options-risk-engine/internal/validation"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// app bundles everything a command needs after wiring
type app struct {
	cfg    *config.Config
	eng    *engine.Engine
	store  storage.Store
	health *monitoring.HealthChecker
	log    *logger.Logger
}

func (a *app) close() {
	a.eng.Close()
	if err := a.store.Close(); err != nil {
		a.log.LogError("close store", err)
	}
	a.log.Close()
}

// buildApp wires the full engine from environment configuration
func buildApp() (*app, error) {
	cfg := config.Load()

	log, err := logger.New("risk-engine")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Close()
		return nil, err
	}

	limits := loadLimits(cfg, log)

	static := marketdata.NewStaticProvider()
	registry := broker.NewRegistry()
	live, err := registerGateways(cfg, registry, static, log)
	if err != nil {
		store.Close()
		log.Close()
		return nil, err
	}
	provider := marketdata.NewGatewayProvider(live, static)

	valCfg := validation.DefaultConfig()
	valCfg.MaxQuantity = cfg.Execution.MaxOrderQuantity
	valCfg.MaxOrderValue = cfg.Execution.MaxOrderValue
	valCfg.MarketHoursOnly = cfg.Execution.MarketHoursOnly
	validator := validation.NewValidator(valCfg, provider)

	executor := execution.NewExecutor(execution.Config{
		PollInterval:      cfg.Execution.PollInterval,
		MonitorTimeout:    cfg.Execution.MonitorTimeout,
		SlippageTolerance: cfg.Execution.SlippageTolerance,
		MarketHoursOnly:   cfg.Execution.MarketHoursOnly,
	}, registry, validator, provider, store, store, log)

	calcCfg := risk.DefaultCalculatorConfig()
	calcCfg.CacheTTL = cfg.Risk.CacheTTL
	calcCfg.BenchmarkSymbol = cfg.Risk.BenchmarkSymbol
	calcCfg.SyntheticMean = cfg.Risk.SyntheticMean
	calcCfg.SyntheticVol = cfg.Risk.SyntheticVol
	calculator := risk.NewCalculator(calcCfg, log)

	notifiers := []notifications.Notifier{notifications.NewLogNotifier(log)}
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChatID != "" {
		notifiers = append(notifiers,
			notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID))
	}

	health := monitoring.NewHealthChecker()
	health.SetConnected(true)

	eng := engine.New(engine.Deps{
		Sizer:      sizing.NewSizer(sizing.DefaultSizerConfig(), log),
		Validator:  validator,
		Executor:   executor,
		Calculator: calculator,
		Monitor:    monitor.New(log),
		Alerts:     monitor.NewAlertManager(store, cfg.Risk.AlertRetention, log, notifiers...),
		Collector:  marketdata.NewCollector(provider, 0),
		Market:     provider,
		Store:      store,
		Limits:     limits,
		Benchmark:  cfg.Risk.BenchmarkSymbol,
		Health:     health,
		Log:        log,
	})

	return &app{cfg: cfg, eng: eng, store: store, health: health, log: log}, nil
}

func buildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Storage.Path)
	case "memory", "":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// loadLimits reads the limits file when present, otherwise falls back
// to the built-in conservative defaults.
func loadLimits(cfg *config.Config, log *logger.Logger) types.RiskLimits {
	if _, err := os.Stat(cfg.Risk.LimitsFile); err != nil {
		log.Warning("Risk limits file %s not found, using defaults", cfg.Risk.LimitsFile)
		return config.DefaultRiskLimits()
	}
	limits, err := config.LoadRiskLimits(cfg.Risk.LimitsFile)
	if err != nil {
		log.Warning("Risk limits file rejected (%v), using defaults", err)
		return config.DefaultRiskLimits()
	}
	log.Info("Loaded risk limits from %s", cfg.Risk.LimitsFile)
	return limits
}

// registerGateways wires the configured gateways into the registry and
// returns the live quote source, if any.
func registerGateways(cfg *config.Config, registry *broker.Registry, static *marketdata.StaticProvider, log *logger.Logger) (marketdata.QuoteFunc, error) {
	paper := broker.NewPaperGateway("paper", static.GetQuote)

	var bybit broker.Gateway
	var live marketdata.QuoteFunc
	if cfg.Broker.BybitAPIKey != "" && cfg.Broker.BybitAPISecret != "" {
		bb := broker.NewBybitGateway(broker.BybitConfig{
			APIKey:    cfg.Broker.BybitAPIKey,
			APISecret: cfg.Broker.BybitAPISecret,
			Testnet:   cfg.Broker.BybitTestnet,
			Demo:      cfg.Broker.BybitDemo,
		})
		bybit = broker.WithResilience(bb,
			broker.NewCircuitBreaker(bb.Name(), broker.BreakerConfig{}),
			broker.DefaultRetryConfig())
		live = bybit.GetQuote
		log.Info("Bybit gateway registered (testnet=%v demo=%v)", cfg.Broker.BybitTestnet, cfg.Broker.BybitDemo)
	}

	pick := func(name string) (broker.Gateway, error) {
		switch name {
		case "paper", "":
			return paper, nil
		case "bybit":
			if bybit == nil {
				return nil, fmt.Errorf("gateway %q requires BYBIT_API_KEY and BYBIT_API_SECRET", name)
			}
			return bybit, nil
		default:
			return nil, fmt.Errorf("unknown gateway %q", name)
		}
	}

	equityPrimary, err := pick(cfg.Broker.Primary)
	if err != nil {
		return nil, err
	}
	optionPrimary, err := pick(cfg.Broker.OptionsPrimary)
	if err != nil {
		return nil, err
	}

	var fallback broker.Gateway
	if cfg.Broker.Fallback != "" {
		if fallback, err = pick(cfg.Broker.Fallback); err != nil {
			return nil, err
		}
	}

	if err := registry.Register(types.InstrumentEquity, equityPrimary, fallback); err != nil {
		return nil, err
	}
	if err := registry.Register(types.InstrumentOption, optionPrimary, fallback); err != nil {
		return nil, err
	}
	return live, nil
}
