// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/intake/internal/log"
)

// lookupEnv resolves key with a typed parser. An unset or empty variable
// yields def; an unparsable one yields def with a warning. The chosen source
// is logged at debug level.
func lookupEnv[T any](key string, def T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Interface("default", def).Str("source", "default").Msg("using default value")
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Interface("default", def).Err(err).Msg("invalid environment variable, using default")
		return def
	}
	logEnvSource(logger, key, parsed)
	return parsed
}

func logEnvSource(logger zerolog.Logger, key string, value any) {
	lower := strings.ToLower(key)
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if strings.Contains(lower, "token") || strings.Contains(lower, "password") {
		ev.Bool("sensitive", true).Msg("using environment variable")
		return
	}
	ev.Interface("value", value).Msg("using environment variable")
}

// ParseString reads a string variable.
func ParseString(key, def string) string {
	return lookupEnv(key, def, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer variable.
func ParseInt(key string, def int) int {
	return lookupEnv(key, def, strconv.Atoi)
}

// ParseInt64 reads a 64-bit integer variable.
func ParseInt64(key string, def int64) int64 {
	return lookupEnv(key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

// ParseFloat reads a float variable.
func ParseFloat(key string, def float64) float64 {
	return lookupEnv(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseDuration reads a Go duration ("4s", "1m30s").
func ParseDuration(key string, def time.Duration) time.Duration {
	return lookupEnv(key, def, time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitively.
func ParseBool(key string, def bool) bool {
	return lookupEnv(key, def, parseBool)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, strconv.ErrSyntax
}
