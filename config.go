// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// This file defines the Config struct (all the knobs the strategies use) and
// the loader that populates it. The .env file is read by loadBotEnv() (see
// env.go), so you can tune behavior without exports.
//
// Precedence, lowest to highest:
//   defaults → YAML file (-config) → process env
//
// The universe defaults per strategy (imbalance: AA/BAC/GS; orders and
// positions: SPY/DIA/GLD/SLV; timestamper: whole feed). "*" means whole feed.
//
// Typical flow (see main.go):
//   loadBotEnv(".env", log)
//   cfg, err := loadConfig(*configPath)
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime knobs for the strategies and operations.
type Config struct {
	// Strategy selection
	Strategy string   `yaml:"strategy"`
	Universe []string `yaml:"universe"` // nil = every symbol the feed sends

	// Sizing (shares)
	EntrySize   int64           `yaml:"entry_size"`   // imbalance entry / orders market buy
	BaseSize    int64           `yaml:"base_size"`    // positions first entry
	PyramidSize int64           `yaml:"pyramid_size"` // positions add-on
	LimitSize   int64           `yaml:"limit_size"`   // orders resting limit
	LimitPrice  decimal.Decimal `yaml:"limit_price"`

	// Imbalance rules
	ImbalanceStart          TimeOfDay       `yaml:"imbalance_start"`
	ImbalanceLogThreshold   int64           `yaml:"imbalance_log_threshold"`
	ImbalanceTradeThreshold int64           `yaml:"imbalance_trade_threshold"`
	BuyRangeMin             decimal.Decimal `yaml:"buy_range_min"`  // BUY needs r >= this
	SellRangeMax            decimal.Decimal `yaml:"sell_range_max"` // SELL needs r <= this

	// Session clock
	MarketOpen      TimeOfDay `yaml:"market_open"`
	OrderTimeoutSec int       `yaml:"order_timeout_sec"`
	MiddayAt        TimeOfDay `yaml:"midday_at"`
	FlattenAt       TimeOfDay `yaml:"flatten_at"`
	SessionEnd      TimeOfDay `yaml:"session_end"`
	CalendarMIC     string    `yaml:"calendar_mic"`

	// Ops
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	JournalPath string `yaml:"journal_path"` // empty disables the journal
	StateFile   string `yaml:"state_file"`   // path to dump strategy state
	Strict      bool   `yaml:"strict"`       // panic on invariant breaches
	FeedURL     string `yaml:"feed_url"`     // ws:// live event feed
}

// defaultUniverses is the symbol set each strategy trades when neither the
// YAML file nor UNIVERSE names one. nil means the whole feed.
var defaultUniverses = map[string][]string{
	"imbalance":   {"AA", "BAC", "GS"},
	"orders":      {"SPY", "DIA", "GLD", "SLV"},
	"positions":   {"SPY", "DIA", "GLD", "SLV"},
	"timestamper": nil,
}

// defaultUniverse returns a copy of the default universe for strategy.
func defaultUniverse(strategy string) []string {
	u := defaultUniverses[strategy]
	if u == nil {
		return nil
	}
	return append([]string(nil), u...)
}

// defaultConfig mirrors the constants the strategies were written against.
func defaultConfig() Config {
	return Config{
		Strategy: "imbalance",
		Universe: defaultUniverse("imbalance"),

		EntrySize:   100,
		BaseSize:    200,
		PyramidSize: 100,
		LimitSize:   100,
		LimitPrice:  decimal.NewFromInt(500),

		ImbalanceStart:          At(15, 30, 0),
		ImbalanceLogThreshold:   100_000,
		ImbalanceTradeThreshold: 100_000,
		BuyRangeMin:             decimal.RequireFromString("0.60"),
		SellRangeMax:            decimal.RequireFromString("0.40"),

		MarketOpen:      At(9, 30, 0),
		OrderTimeoutSec: 15,
		MiddayAt:        At(12, 0, 0),
		FlattenAt:       At(15, 58, 0),
		SessionEnd:      At(16, 0, 0),
		CalendarMIC:     "xnys",

		Port:      8080,
		LogLevel:  "info",
		StateFile: "strategy_state.json",
	}
}

// loadConfig builds a Config from defaults, the optional YAML file at path,
// and the process env (already hydrated by loadBotEnv()).
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	cfg.Universe = nil // resolved per strategy below unless set explicitly
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	explicit := cfg.Universe != nil || strings.TrimSpace(os.Getenv("UNIVERSE")) != ""
	cfg.applyEnv()
	cfg.Strategy = strings.ToLower(strings.TrimSpace(cfg.Strategy))
	switch {
	case !explicit:
		cfg.Universe = defaultUniverse(cfg.Strategy)
	case len(cfg.Universe) == 1 && strings.TrimSpace(cfg.Universe[0]) == "*":
		cfg.Universe = nil
	default:
		for i, s := range cfg.Universe {
			cfg.Universe[i] = strings.ToUpper(strings.TrimSpace(s))
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides every knob whose env key is set.
func (c *Config) applyEnv() {
	c.Strategy = getEnv("STRATEGY", c.Strategy)
	c.Universe = getEnvList("UNIVERSE", c.Universe)

	c.EntrySize = getEnvInt64("ENTRY_SIZE", c.EntrySize)
	c.BaseSize = getEnvInt64("BASE_SIZE", c.BaseSize)
	c.PyramidSize = getEnvInt64("PYRAMID_SIZE", c.PyramidSize)
	c.LimitSize = getEnvInt64("LIMIT_SIZE", c.LimitSize)
	c.LimitPrice = getEnvDecimal("LIMIT_PRICE", c.LimitPrice)

	c.ImbalanceStart = getEnvTime("IMBALANCE_START", c.ImbalanceStart)
	c.ImbalanceLogThreshold = getEnvInt64("IMBALANCE_LOG_THRESHOLD", c.ImbalanceLogThreshold)
	c.ImbalanceTradeThreshold = getEnvInt64("IMBALANCE_TRADE_THRESHOLD", c.ImbalanceTradeThreshold)
	c.BuyRangeMin = getEnvDecimal("BUY_RANGE_MIN", c.BuyRangeMin)
	c.SellRangeMax = getEnvDecimal("SELL_RANGE_MAX", c.SellRangeMax)

	c.MarketOpen = getEnvTime("MARKET_OPEN", c.MarketOpen)
	c.OrderTimeoutSec = getEnvInt("ORDER_TIMEOUT_SEC", c.OrderTimeoutSec)
	c.MiddayAt = getEnvTime("MIDDAY_AT", c.MiddayAt)
	c.FlattenAt = getEnvTime("FLATTEN_AT", c.FlattenAt)
	c.SessionEnd = getEnvTime("SESSION_END", c.SessionEnd)
	c.CalendarMIC = getEnv("CALENDAR_MIC", c.CalendarMIC)

	c.Port = getEnvInt("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JournalPath = getEnv("JOURNAL_PATH", c.JournalPath)
	c.StateFile = getEnv("STATE_FILE", c.StateFile)
	c.Strict = getEnvBool("STRICT", c.Strict)
	c.FeedURL = getEnv("FEED_URL", c.FeedURL)
}

// Validate rejects configurations no strategy can run with.
func (c Config) Validate() error {
	var errs []error
	if _, ok := strategies[c.Strategy]; !ok {
		errs = append(errs, fmt.Errorf("strategy %q unknown (have %s)", c.Strategy, strings.Join(strategyNames(), ", ")))
	}
	for name, v := range map[string]int64{
		"entry_size":   c.EntrySize,
		"base_size":    c.BaseSize,
		"pyramid_size": c.PyramidSize,
		"limit_size":   c.LimitSize,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if !c.LimitPrice.IsPositive() {
		errs = append(errs, fmt.Errorf("limit_price must be positive, got %s", c.LimitPrice))
	}
	if c.ImbalanceLogThreshold < 0 || c.ImbalanceTradeThreshold < 0 {
		errs = append(errs, errors.New("imbalance thresholds must not be negative"))
	}
	one := decimal.NewFromInt(1)
	if c.SellRangeMax.IsNegative() || c.BuyRangeMin.GreaterThan(one) {
		errs = append(errs, errors.New("range bounds must lie in [0,1]"))
	}
	if c.SellRangeMax.GreaterThan(c.BuyRangeMin) {
		errs = append(errs, fmt.Errorf("sell_range_max %s above buy_range_min %s", c.SellRangeMax, c.BuyRangeMin))
	}
	if c.OrderTimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("order_timeout_sec must not be negative, got %d", c.OrderTimeoutSec))
	}
	if c.FlattenAt < c.MiddayAt {
		errs = append(errs, fmt.Errorf("flatten_at %s before midday_at %s", c.FlattenAt, c.MiddayAt))
	}
	if c.SessionEnd < c.FlattenAt {
		errs = append(errs, fmt.Errorf("session_end %s before flatten_at %s", c.SessionEnd, c.FlattenAt))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// OrderTimeout is how long an order may work before the sweep cancels it.
func (c Config) OrderTimeout() time.Duration {
	return time.Duration(c.OrderTimeoutSec) * time.Second
}
