// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ManuGH/intake/internal/config"
)

// Deps are the collaborators of a Manager.
type Deps struct {
	Logger zerolog.Logger
	Server config.ServerConfig

	APIHandler http.Handler
	// MetricsHandler is served on Server.MetricsListen when both are set.
	MetricsHandler http.Handler
}

// Validate checks the required dependencies.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
