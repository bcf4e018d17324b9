// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors AppConfig for YAML. Durations are Go duration strings;
// pointer fields distinguish "unset" from an explicit zero.
type FileConfig struct {
	LogLevel string `yaml:"logLevel"`

	Backend struct {
		URL              string `yaml:"url"`
		Timeout          string `yaml:"timeout"`
		SubmitTimeout    string `yaml:"submitTimeout"`
		BreakerThreshold *int   `yaml:"breakerThreshold"`
		BreakerReset     string `yaml:"breakerReset"`
	} `yaml:"backend"`

	Server struct {
		Listen          string   `yaml:"listen"`
		MetricsListen   *string  `yaml:"metricsListen"`
		ShutdownTimeout string   `yaml:"shutdownTimeout"`
		MaxUploadBytes  *int64   `yaml:"maxUploadBytes"`
		SubmitPerMinute *int     `yaml:"submitPerMinute"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Polling struct {
		TrackInterval       string   `yaml:"trackInterval"`
		DiagnosticsInterval string   `yaml:"diagnosticsInterval"`
		RefreshRPS          *float64 `yaml:"refreshRps"`
		RefreshBurst        *int     `yaml:"refreshBurst"`
	} `yaml:"polling"`

	Tracing struct {
		Enabled      *bool    `yaml:"enabled"`
		Exporter     string   `yaml:"exporter"`
		Endpoint     string   `yaml:"endpoint"`
		SamplingRate *float64 `yaml:"samplingRate"`
		Environment  string   `yaml:"environment"`
	} `yaml:"tracing"`
}

// loadFile parses path strictly: unknown keys and trailing documents are errors.
func loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- the path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fc, nil
}

func mergeDuration(dst *time.Duration, field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

func mergeValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = os.ExpandEnv(src)
	}
}

// mergeFile overlays fc onto cfg.
func mergeFile(cfg *AppConfig, fc *FileConfig) error {
	mergeString(&cfg.LogLevel, fc.LogLevel)

	mergeString(&cfg.Backend.URL, fc.Backend.URL)
	mergeValue(&cfg.Backend.BreakerThreshold, fc.Backend.BreakerThreshold)

	mergeString(&cfg.Server.Listen, fc.Server.Listen)
	mergeValue(&cfg.Server.MetricsListen, fc.Server.MetricsListen)
	mergeValue(&cfg.Server.MaxUploadBytes, fc.Server.MaxUploadBytes)
	mergeValue(&cfg.Server.SubmitPerMinute, fc.Server.SubmitPerMinute)
	if fc.Server.AllowedOrigins != nil {
		cfg.Server.AllowedOrigins = fc.Server.AllowedOrigins
	}

	mergeValue(&cfg.Polling.RefreshRPS, fc.Polling.RefreshRPS)
	mergeValue(&cfg.Polling.RefreshBurst, fc.Polling.RefreshBurst)

	mergeValue(&cfg.Tracing.Enabled, fc.Tracing.Enabled)
	mergeString(&cfg.Tracing.Exporter, fc.Tracing.Exporter)
	mergeString(&cfg.Tracing.Endpoint, fc.Tracing.Endpoint)
	mergeValue(&cfg.Tracing.SamplingRate, fc.Tracing.SamplingRate)
	mergeString(&cfg.Tracing.Environment, fc.Tracing.Environment)

	return errors.Join(
		mergeDuration(&cfg.Backend.Timeout, "backend.timeout", fc.Backend.Timeout),
		mergeDuration(&cfg.Backend.SubmitTimeout, "backend.submitTimeout", fc.Backend.SubmitTimeout),
		mergeDuration(&cfg.Backend.BreakerReset, "backend.breakerReset", fc.Backend.BreakerReset),
		mergeDuration(&cfg.Server.ShutdownTimeout, "server.shutdownTimeout", fc.Server.ShutdownTimeout),
		mergeDuration(&cfg.Polling.TrackInterval, "polling.trackInterval", fc.Polling.TrackInterval),
		mergeDuration(&cfg.Polling.DiagnosticsInterval, "polling.diagnosticsInterval", fc.Polling.DiagnosticsInterval),
	)
}

// ToFile renders cfg in file form, e.g. for dumping the effective configuration.
func ToFile(cfg AppConfig) FileConfig {
	var fc FileConfig
	fc.LogLevel = cfg.LogLevel

	fc.Backend.URL = cfg.Backend.URL
	fc.Backend.Timeout = cfg.Backend.Timeout.String()
	fc.Backend.SubmitTimeout = cfg.Backend.SubmitTimeout.String()
	fc.Backend.BreakerThreshold = &cfg.Backend.BreakerThreshold
	fc.Backend.BreakerReset = cfg.Backend.BreakerReset.String()

	fc.Server.Listen = cfg.Server.Listen
	fc.Server.MetricsListen = &cfg.Server.MetricsListen
	fc.Server.ShutdownTimeout = cfg.Server.ShutdownTimeout.String()
	fc.Server.MaxUploadBytes = &cfg.Server.MaxUploadBytes
	fc.Server.SubmitPerMinute = &cfg.Server.SubmitPerMinute
	fc.Server.AllowedOrigins = cfg.Server.AllowedOrigins

	fc.Polling.TrackInterval = cfg.Polling.TrackInterval.String()
	fc.Polling.DiagnosticsInterval = cfg.Polling.DiagnosticsInterval.String()
	fc.Polling.RefreshRPS = &cfg.Polling.RefreshRPS
	fc.Polling.RefreshBurst = &cfg.Polling.RefreshBurst

	fc.Tracing.Enabled = &cfg.Tracing.Enabled
	fc.Tracing.Exporter = cfg.Tracing.Exporter
	fc.Tracing.Endpoint = cfg.Tracing.Endpoint
	fc.Tracing.SamplingRate = &cfg.Tracing.SamplingRate
	fc.Tracing.Environment = cfg.Tracing.Environment
	return fc
}
