// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command intake runs the ingestion dashboard daemon and its one-shot helpers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/intake/internal/config"
	"github.com/ManuGH/intake/internal/daemon"
	xglog "github.com/ManuGH/intake/internal/log"
	xgnet "github.com/ManuGH/intake/internal/platform/net"
	"github.com/ManuGH/intake/internal/version"
)

// configPath resolves an explicit flag value, falling back to INTAKE_CONFIG.
func configPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(config.EnvConfigFile))
}

func loadConfig(path string) (config.AppConfig, error) {
	return config.NewLoader(configPath(path), version.Version).Load()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "jobs":
			os.Exit(runJobsCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "submit":
			os.Exit(runSubmitCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "config":
			os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:], os.Stdout, os.Stderr))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	cfgFlag := flag.String("config", "", "path to config file (YAML); defaults to $INTAKE_CONFIG")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: daemon.ServiceName, Version: version.Version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := configPath(*cfgFlag)
	cfg, err := loadConfig(path)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: daemon.ServiceName, Version: cfg.Version})
	logger = xglog.WithComponent("main")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", path).
		Str(xglog.FieldBaseURL, xgnet.SanitizeURL(cfg.Backend.URL)).
		Str("listen", cfg.Server.Listen).
		Msg("configuration loaded")

	app, err := daemon.NewApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "startup.failed").Msg("failed to initialise daemon")
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.exit_error").Msg("daemon stopped with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("server exiting")
}
