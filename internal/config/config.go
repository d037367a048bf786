package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// Config holds engine configuration sourced from the environment.
// Risk limits live in a separate YAML file (see LoadRiskLimits) so
// operators can tune them without touching deployment env.
type Config struct {
	Environment string
	LogLevel    string

	Broker struct {
		Primary        string // Gateway name for equities
		OptionsPrimary string // Gateway name for option contracts
		Fallback       string // Optional fallback gateway name
		BybitAPIKey    string
		BybitAPISecret string
		BybitTestnet   bool
		BybitDemo      bool
	}

	Execution struct {
		PollInterval      time.Duration // Order monitor poll cadence
		MonitorTimeout    time.Duration // Give up and cancel after this long
		SlippageTolerance float64       // Fractional tolerance for market->limit conversion
		MarketHoursOnly   bool
		MaxOrderValue     float64
		MaxOrderQuantity  int64
	}

	Risk struct {
		LimitsFile      string
		CacheTTL        time.Duration
		BenchmarkSymbol string
		SyntheticMean   float64 // Daily mean for synthesized return series
		SyntheticVol    float64 // Daily volatility for synthesized return series
		MonitorInterval time.Duration
		AlertRetention  time.Duration
	}

	Storage struct {
		Driver string // "memory" or "sqlite"
		Path   string
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
		APIPort        int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}
}

// Load builds a Config from environment variables with sane defaults
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Broker.Primary = getEnv("BROKER_PRIMARY", "paper")
	cfg.Broker.OptionsPrimary = getEnv("BROKER_OPTIONS_PRIMARY", cfg.Broker.Primary)
	cfg.Broker.Fallback = getEnv("BROKER_FALLBACK", "")
	cfg.Broker.BybitAPIKey = getEnv("BYBIT_API_KEY", "")
	cfg.Broker.BybitAPISecret = getEnv("BYBIT_API_SECRET", "")
	cfg.Broker.BybitTestnet = getEnvBool("BYBIT_TESTNET", true)
	cfg.Broker.BybitDemo = getEnvBool("BYBIT_DEMO", true)

	cfg.Execution.PollInterval = getEnvDuration("ORDER_POLL_INTERVAL", 2*time.Second)
	cfg.Execution.MonitorTimeout = getEnvDuration("ORDER_MONITOR_TIMEOUT", 5*time.Minute)
	cfg.Execution.SlippageTolerance = getEnvFloat("SLIPPAGE_TOLERANCE", 0.01)
	cfg.Execution.MarketHoursOnly = getEnvBool("MARKET_HOURS_ONLY", true)
	cfg.Execution.MaxOrderValue = getEnvFloat("MAX_ORDER_VALUE", 500000.0)
	cfg.Execution.MaxOrderQuantity = int64(getEnvInt("MAX_ORDER_QUANTITY", 100000))

	cfg.Risk.LimitsFile = getEnv("RISK_LIMITS_FILE", "configs/risk_limits.yaml")
	cfg.Risk.CacheTTL = getEnvDuration("RISK_CACHE_TTL", 15*time.Second)
	cfg.Risk.BenchmarkSymbol = getEnv("RISK_BENCHMARK", "SPY")
	cfg.Risk.SyntheticMean = getEnvFloat("RISK_SYNTHETIC_MEAN", 0.0003)
	cfg.Risk.SyntheticVol = getEnvFloat("RISK_SYNTHETIC_VOL", 0.02)
	cfg.Risk.MonitorInterval = getEnvDuration("RISK_MONITOR_INTERVAL", time.Minute)
	cfg.Risk.AlertRetention = getEnvDuration("ALERT_RETENTION", 72*time.Hour)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", "memory")
	cfg.Storage.Path = getEnv("STORAGE_PATH", "data/engine.db")

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 9090)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)
	cfg.Monitoring.APIPort = getEnvInt("API_PORT", 8080)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

// DefaultRiskLimits returns conservative limits used when no limits
// file is configured.
func DefaultRiskLimits() types.RiskLimits {
	return types.RiskLimits{
		MaxPositionSize:     0.20,
		MaxSectorExposure:   0.30,
		MaxStrategyExposure: 0.25,
		MaxPortfolioVaR:     100000.0,
		MaxDrawdown:         0.15,
		MaxBeta:             1.5,
		MaxLeverage:         2.0,
		MaxLiquidityRisk:    0.50,
		MaxGreeksScore:      8.0,
	}
}

// LoadRiskLimits reads risk limits from a YAML file. A missing file is
// a configuration error; malformed limits are rejected.
func LoadRiskLimits(path string) (types.RiskLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RiskLimits{}, fmt.Errorf("failed to read risk limits file %s: %w", path, err)
	}

	limits := DefaultRiskLimits()
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return types.RiskLimits{}, fmt.Errorf("failed to parse risk limits file %s: %w", path, err)
	}

	if err := ValidateRiskLimits(limits); err != nil {
		return types.RiskLimits{}, err
	}
	return limits, nil
}

// ValidateRiskLimits rejects nonsensical limit configurations
func ValidateRiskLimits(limits types.RiskLimits) error {
	if limits.MaxPositionSize <= 0 || limits.MaxPositionSize > 1 {
		return fmt.Errorf("max_position_size must be in (0, 1], got %.4f", limits.MaxPositionSize)
	}
	if limits.MaxPortfolioVaR <= 0 {
		return fmt.Errorf("max_portfolio_var must be positive, got %.2f", limits.MaxPortfolioVaR)
	}
	if limits.MaxDrawdown <= 0 || limits.MaxDrawdown > 1 {
		return fmt.Errorf("max_drawdown must be in (0, 1], got %.4f", limits.MaxDrawdown)
	}
	if limits.MaxBeta <= 0 {
		return fmt.Errorf("max_beta must be positive, got %.2f", limits.MaxBeta)
	}
	if limits.MaxLeverage < 1 {
		return fmt.Errorf("max_leverage must be at least 1, got %.2f", limits.MaxLeverage)
	}
	if limits.MaxSectorExposure <= 0 || limits.MaxSectorExposure > 1 {
		return fmt.Errorf("max_sector_exposure must be in (0, 1], got %.4f", limits.MaxSectorExposure)
	}
	if limits.MaxStrategyExposure <= 0 || limits.MaxStrategyExposure > 1 {
		return fmt.Errorf("max_strategy_exposure must be in (0, 1], got %.4f", limits.MaxStrategyExposure)
	}
	if limits.MaxLiquidityRisk <= 0 || limits.MaxLiquidityRisk > 1 {
		return fmt.Errorf("max_liquidity_risk must be in (0, 1], got %.4f", limits.MaxLiquidityRisk)
	}
	if limits.MaxGreeksScore <= 0 || limits.MaxGreeksScore > 10 {
		return fmt.Errorf("max_greeks_score must be in (0, 10], got %.2f", limits.MaxGreeksScore)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
