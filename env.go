// FILE: env.go
// Package main – Environment helpers for the strategy runtime.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, bools, decimals, times of day, lists).
//   2) A safe loader (loadBotEnv) that reads a .env file and admits only the
//      keys the runtime knows about, never overriding the process env.
//
// Notes:
//   • The runtime never requires `export $(cat .env ...)`.
//   • Unparseable values fall back to the default silently; Config.Validate
//     catches values that parse but make no sense.

package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}
func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
func getEnvInt64(key string, def int64) int64 {
	v := strings.ReplaceAll(strings.TrimSpace(os.Getenv(key)), "_", "")
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}
func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
func getEnvTime(key string, def TimeOfDay) TimeOfDay {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	t, err := ParseTimeOfDay(v)
	if err != nil {
		return def
	}
	return t
}

// getEnvList splits a comma separated value; "*" or "" keep the default.
func getEnvList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if v == "*" {
		return nil
	}
	return splitSymbols(v)
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --------- .env loader ---------

// envKeys are the only keys loadBotEnv admits from a .env file.
var envKeys = map[string]struct{}{
	"STRATEGY": {}, "UNIVERSE": {},
	"ENTRY_SIZE": {}, "BASE_SIZE": {}, "PYRAMID_SIZE": {}, "LIMIT_SIZE": {}, "LIMIT_PRICE": {},
	"IMBALANCE_START": {}, "IMBALANCE_LOG_THRESHOLD": {}, "IMBALANCE_TRADE_THRESHOLD": {},
	"BUY_RANGE_MIN": {}, "SELL_RANGE_MAX": {},
	"MARKET_OPEN": {}, "ORDER_TIMEOUT_SEC": {}, "MIDDAY_AT": {}, "FLATTEN_AT": {}, "SESSION_END": {},
	"PORT": {}, "LOG_LEVEL": {}, "JOURNAL_PATH": {}, "STATE_FILE": {}, "STRICT": {},
	"CALENDAR_MIC": {}, "FEED_URL": {},
}

// loadBotEnv reads path and sets ONLY the keys the runtime needs.
// It won't override variables already in the environment.
func loadBotEnv(path string, log zerolog.Logger) {
	vals, err := godotenv.Read(path)
	if err != nil {
		log.Debug().Str("path", path).Msg("env file not found, relying on process env")
		return
	}
	n := 0
	for key, val := range vals {
		if _, ok := envKeys[key]; !ok {
			continue
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
			n++
		}
	}
	log.Info().Str("path", path).Int("keys", n).Msg("env loaded")
}
