// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration with precedence
// ENV > YAML file > defaults.
package config

import "time"

// BackendConfig describes the ingestion backend.
type BackendConfig struct {
	URL              string
	Timeout          time.Duration // job registry reads and health probes
	SubmitTimeout    time.Duration // one ingest upload end to end
	BreakerThreshold int
	BreakerReset     time.Duration
}

// ServerConfig describes the dashboard listeners.
type ServerConfig struct {
	Listen          string
	MetricsListen   string // empty disables the metrics listener
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	// SubmitPerMinute is the per-client submit budget.
	SubmitPerMinute int
	// AllowedOrigins lists browser origins besides the dashboard's own.
	AllowedOrigins []string
}

// PollingConfig describes the registry schedulers.
type PollingConfig struct {
	TrackInterval       time.Duration
	DiagnosticsInterval time.Duration
	RefreshRPS          float64
	RefreshBurst        int
}

// TracingConfig describes OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	Version  string
	LogLevel string
	Backend  BackendConfig
	Server   ServerConfig
	Polling  PollingConfig
	Tracing  TracingConfig
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Backend: BackendConfig{
			URL:              "http://localhost:8000/api",
			Timeout:          30 * time.Second,
			SubmitTimeout:    30 * time.Minute,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Server: ServerConfig{
			Listen:          ":8088",
			MetricsListen:   ":9091",
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  512 << 20,
			SubmitPerMinute: 10,
		},
		Polling: PollingConfig{
			TrackInterval:       4 * time.Second,
			DiagnosticsInterval: 8 * time.Second,
			RefreshRPS:          1,
			RefreshBurst:        3,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 0.1,
			Environment:  "production",
		},
	}
}
