package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/volatiq/gotdi/types"
)

// StrategyConfig holds all tunable parameters for one symbol's strategy.
type StrategyConfig struct {
	// TDI indicator parameters (defaults tuned for crypto).
	RSILength        int     `yaml:"rsi_length"`
	FastMA           int     `yaml:"fast_ma"`
	SlowMA           int     `yaml:"slow_ma"`
	BandLength       int     `yaml:"volatility_band_length"`
	StdDevMultiplier float64 `yaml:"std_dev_multiplier"`

	// Risk parameters.
	AccountRisk           float64   `yaml:"account_risk"`            // fraction of balance risked per trade
	MaxLeverage           float64   `yaml:"max_leverage"`            // upper bound for dynamic leverage
	RiskRewardRatios      []float64 `yaml:"risk_reward_ratios"`      // take-profit ladder, ascending
	TrailingActivationPct float64   `yaml:"trailing_activation_pct"` // unrealized profit that arms the trailing stop
	ATRStopMultiplier     float64   `yaml:"atr_stop_multiplier"`

	// Multi-timeframe roles.
	MacroTimeframe     types.Timeframe `yaml:"macro_timeframe"`
	StrategyTimeframe  types.Timeframe `yaml:"strategy_timeframe"`
	ExecutionTimeframe types.Timeframe `yaml:"execution_timeframe"`
	MicroTimeframe     types.Timeframe `yaml:"micro_timeframe"`
	Lookback           int             `yaml:"lookback"` // bars fetched per timeframe

	// Cross-market correlation filter.
	UseCorrelation    bool   `yaml:"use_correlation"`
	CorrelationSymbol string `yaml:"correlation_symbol"`
	QuoteAsset        string `yaml:"quote_asset"`
}

// DefaultStrategyConfig returns the stock parameter set.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		RSILength:        8,
		FastMA:           2,
		SlowMA:           7,
		BandLength:       20,
		StdDevMultiplier: 2.2,

		AccountRisk:           0.02,
		MaxLeverage:           5,
		RiskRewardRatios:      []float64{1.5, 2.5, 3.5},
		TrailingActivationPct: 0.03,
		ATRStopMultiplier:     2.0,

		MacroTimeframe:     types.TF1w,
		StrategyTimeframe:  types.TF1d,
		ExecutionTimeframe: types.TF4h,
		MicroTimeframe:     types.TF1h,
		Lookback:           500,

		UseCorrelation:    true,
		CorrelationSymbol: "BTCUSDT",
		QuoteAsset:        "USDT",
	}
}

// Validate checks that all numeric fields are within sensible bounds.
// It returns the first encountered error so the caller can surface a
// clear configuration problem before any trading starts.
func (c *StrategyConfig) Validate() error {
	if c.RSILength <= 1 {
		return errors.New("rsi_length must be greater than 1")
	}
	if c.FastMA <= 0 || c.SlowMA <= 0 {
		return errors.New("fast_ma and slow_ma must be positive")
	}
	if c.FastMA >= c.SlowMA {
		return fmt.Errorf("fast_ma (%d) must be shorter than slow_ma (%d)", c.FastMA, c.SlowMA)
	}
	if c.BandLength <= 1 {
		return errors.New("volatility_band_length must be greater than 1")
	}
	if c.StdDevMultiplier <= 0 {
		return errors.New("std_dev_multiplier must be positive")
	}
	if c.AccountRisk <= 0 || c.AccountRisk > 0.5 {
		return fmt.Errorf("account_risk (%f) must be >0 and <=0.5", c.AccountRisk)
	}
	if c.MaxLeverage < 1 {
		return fmt.Errorf("max_leverage (%f) must be at least 1", c.MaxLeverage)
	}
	if len(c.RiskRewardRatios) == 0 {
		return errors.New("risk_reward_ratios must not be empty")
	}
	prev := 0.0
	for _, r := range c.RiskRewardRatios {
		if r <= prev {
			return fmt.Errorf("risk_reward_ratios must be positive and ascending, got %v", c.RiskRewardRatios)
		}
		prev = r
	}
	if c.TrailingActivationPct < 0 || c.TrailingActivationPct > 1 {
		return fmt.Errorf("trailing_activation_pct (%f) must be between 0 and 1", c.TrailingActivationPct)
	}
	if c.ATRStopMultiplier <= 0 {
		return errors.New("atr_stop_multiplier must be positive")
	}
	for _, tf := range []types.Timeframe{c.MacroTimeframe, c.StrategyTimeframe, c.ExecutionTimeframe, c.MicroTimeframe} {
		if !tf.Valid() {
			return fmt.Errorf("unknown timeframe %q", tf)
		}
	}
	if c.Lookback < c.BandLength+c.SlowMA {
		return fmt.Errorf("lookback (%d) too short for indicator warm-up", c.Lookback)
	}
	if c.UseCorrelation && c.CorrelationSymbol == "" {
		return errors.New("correlation_symbol required when use_correlation is set")
	}
	if c.QuoteAsset == "" {
		return errors.New("quote_asset is required")
	}
	return nil
}

// Config is the application-level configuration.
type Config struct {
	Symbols  []string       `yaml:"symbols"`
	Strategy StrategyConfig `yaml:"strategy"`

	Exchange struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Paper     bool   `yaml:"paper"` // dry-run with the in-memory client
	} `yaml:"exchange"`

	Schedule struct {
		CycleCron string `yaml:"cycle_cron"` // one decision cycle per symbol
	} `yaml:"schedule"`

	Web struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"web"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A .env file next to the binary is honoured first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional; env vars win either way

	cfg := &Config{Strategy: DefaultStrategyConfig()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides.
	if v := os.Getenv("TRADING_SYMBOLS"); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("EXCHANGE_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("PAPER_TRADING"); v != "" {
		cfg.Exchange.Paper = parseBool(v)
	}
	if v := os.Getenv("ACCOUNT_RISK_PER_TRADE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Strategy.AccountRisk = f
		}
	}
	if v := os.Getenv("MAX_LEVERAGE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Strategy.MaxLeverage = f
		}
	}
	if v := os.Getenv("USE_CROSS_MARKET_CORRELATION"); v != "" {
		cfg.Strategy.UseCorrelation = parseBool(v)
	}
	if v := os.Getenv("CYCLE_CRON"); v != "" {
		cfg.Schedule.CycleCron = v
	}
	if v := os.Getenv("WEB_LISTEN_ADDR"); v != "" {
		cfg.Web.ListenAddr = v
	}

	// Defaults.
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	if cfg.Schedule.CycleCron == "" {
		cfg.Schedule.CycleCron = "0 */5 * * * *" // every five minutes
	}
	if cfg.Web.ListenAddr == "" {
		cfg.Web.ListenAddr = ":8080"
	}

	return cfg, nil
}

// Validate checks the application config and the embedded strategy config.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("at least one trading symbol is required")
	}
	if !c.Exchange.Paper && (c.Exchange.APIKey == "" || c.Exchange.APISecret == "") {
		return errors.New("exchange credentials required unless paper mode is enabled")
	}
	return c.Strategy.Validate()
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "t", "yes":
		return true
	}
	return false
}
