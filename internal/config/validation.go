// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/intake/internal/validate"
)

// Validate reports every invalid setting at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("LogLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})

	v.URL("Backend.URL", cfg.Backend.URL, []string{"http", "https"})
	v.PositiveDuration("Backend.Timeout", cfg.Backend.Timeout)
	v.PositiveDuration("Backend.SubmitTimeout", cfg.Backend.SubmitTimeout)
	v.Range("Backend.BreakerThreshold", cfg.Backend.BreakerThreshold, 1, 100)
	v.PositiveDuration("Backend.BreakerReset", cfg.Backend.BreakerReset)

	v.ListenAddr("Server.Listen", cfg.Server.Listen)
	if cfg.Server.MetricsListen != "" {
		v.ListenAddr("Server.MetricsListen", cfg.Server.MetricsListen)
	}
	v.PositiveDuration("Server.ShutdownTimeout", cfg.Server.ShutdownTimeout)
	v.Positive("Server.MaxUploadBytes", cfg.Server.MaxUploadBytes)
	v.Positive("Server.SubmitPerMinute", int64(cfg.Server.SubmitPerMinute))
	for _, o := range cfg.Server.AllowedOrigins {
		if o != "*" {
			v.URL("Server.AllowedOrigins", o, []string{"http", "https"})
		}
	}

	v.PositiveDuration("Polling.TrackInterval", cfg.Polling.TrackInterval)
	v.PositiveDuration("Polling.DiagnosticsInterval", cfg.Polling.DiagnosticsInterval)
	if cfg.Polling.RefreshRPS <= 0 {
		v.AddError("Polling.RefreshRPS", "value must be positive", cfg.Polling.RefreshRPS)
	}
	v.Positive("Polling.RefreshBurst", int64(cfg.Polling.RefreshBurst))

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		if cfg.Tracing.Endpoint == "" {
			v.AddError("Tracing.Endpoint", "endpoint is required when tracing is enabled", cfg.Tracing.Endpoint)
		}
		v.Fraction("Tracing.SamplingRate", cfg.Tracing.SamplingRate)
	}

	return v.Err()
}
