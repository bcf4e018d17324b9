// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvConfigFile          = "INTAKE_CONFIG"
	EnvLogLevel            = "INTAKE_LOG_LEVEL"
	EnvBackendURL          = "INTAKE_BACKEND_URL"
	EnvHTTPTimeout         = "INTAKE_HTTP_TIMEOUT"
	EnvSubmitTimeout       = "INTAKE_SUBMIT_TIMEOUT"
	EnvBreakerThreshold    = "INTAKE_BREAKER_THRESHOLD"
	EnvBreakerReset        = "INTAKE_BREAKER_RESET"
	EnvListen              = "INTAKE_LISTEN"
	EnvMetricsAddr         = "INTAKE_METRICS_ADDR"
	EnvShutdownTimeout     = "INTAKE_SHUTDOWN_TIMEOUT"
	EnvMaxUploadBytes      = "INTAKE_MAX_UPLOAD_BYTES"
	EnvSubmitRate          = "INTAKE_SUBMIT_RATE"
	EnvAllowedOrigins      = "INTAKE_ALLOWED_ORIGINS"
	EnvTrackInterval       = "INTAKE_TRACK_INTERVAL"
	EnvDiagnosticsInterval = "INTAKE_DIAGNOSTICS_INTERVAL"
	EnvRefreshRPS          = "INTAKE_REFRESH_RPS"
	EnvRefreshBurst        = "INTAKE_REFRESH_BURST"
	EnvTracingEnabled      = "INTAKE_TRACING_ENABLED"
	EnvTracingExporter     = "INTAKE_TRACING_EXPORTER"
	EnvTracingEndpoint     = "INTAKE_TRACING_ENDPOINT"
	EnvTracingSampleRate   = "INTAKE_TRACING_SAMPLE_RATE"
	EnvEnvironment         = "INTAKE_ENV"
)

// Loader resolves configuration from defaults, an optional YAML file and the
// environment, in increasing priority.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys lists every variable the last Load looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, def string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, def)
}

func (l *Loader) envInt(key string, def int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, def)
}

func (l *Loader) envInt64(key string, def int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, def)
}

func (l *Loader) envFloat(key string, def float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, def)
}

func (l *Loader) envBool(key string, def bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, def)
}

func (l *Loader) envDuration(key string, def time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, def)
}

// Load parses the file strictly, applies the environment and validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fc, err := loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFile(&cfg, fc); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Backend.URL = l.envString(EnvBackendURL, cfg.Backend.URL)
	cfg.Backend.Timeout = l.envDuration(EnvHTTPTimeout, cfg.Backend.Timeout)
	cfg.Backend.SubmitTimeout = l.envDuration(EnvSubmitTimeout, cfg.Backend.SubmitTimeout)
	cfg.Backend.BreakerThreshold = l.envInt(EnvBreakerThreshold, cfg.Backend.BreakerThreshold)
	cfg.Backend.BreakerReset = l.envDuration(EnvBreakerReset, cfg.Backend.BreakerReset)

	cfg.Server.Listen = l.envString(EnvListen, cfg.Server.Listen)
	// An explicitly empty value disables the metrics listener.
	l.ConsumedEnvKeys[EnvMetricsAddr] = struct{}{}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		cfg.Server.MetricsListen = v
	}
	cfg.Server.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.Server.ShutdownTimeout)
	cfg.Server.MaxUploadBytes = l.envInt64(EnvMaxUploadBytes, cfg.Server.MaxUploadBytes)
	cfg.Server.SubmitPerMinute = l.envInt(EnvSubmitRate, cfg.Server.SubmitPerMinute)
	if raw := l.envString(EnvAllowedOrigins, ""); raw != "" {
		cfg.Server.AllowedOrigins = splitList(raw)
	}

	cfg.Polling.TrackInterval = l.envDuration(EnvTrackInterval, cfg.Polling.TrackInterval)
	cfg.Polling.DiagnosticsInterval = l.envDuration(EnvDiagnosticsInterval, cfg.Polling.DiagnosticsInterval)
	cfg.Polling.RefreshRPS = l.envFloat(EnvRefreshRPS, cfg.Polling.RefreshRPS)
	cfg.Polling.RefreshBurst = l.envInt(EnvRefreshBurst, cfg.Polling.RefreshBurst)

	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSampleRate, cfg.Tracing.SamplingRate)
	cfg.Tracing.Environment = l.envString(EnvEnvironment, cfg.Tracing.Environment)
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
