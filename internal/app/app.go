// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer // receives the document unless Config.OutputPath is set
	logger     *slog.Logger
	config     *Config
	metrics    *metrics.Metrics
	ctx        context.Context
	httpServer *http.Server

	editsWritten bool // recorded placements are saved once per App
}

// NewApp is the constructor for the main application. Logs go to logW and
// the circuit document to outW.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		metrics: metrics.New(),
		ctx:     ctxlog.WithLogger(context.Background(), logger),
	}
}

// Metrics returns the application's metrics. This is primarily for testing.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}
