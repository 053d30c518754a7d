// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vk/circuitgo/internal/circuitdoc"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/frontend"
	"github.com/vk/circuitgo/internal/layout"
	"github.com/vk/circuitgo/internal/manualedits"
	"github.com/vk/circuitgo/internal/metrics"
	"github.com/vk/circuitgo/internal/publish"
	"github.com/vk/circuitgo/internal/sandbox"
	"github.com/vk/circuitgo/internal/vfs"
)

var _ sandbox.Recorder = (*metrics.Metrics)(nil)

// Run evaluates the configured circuit, settles it and writes the document.
// In watch mode it keeps going until ctx ends, settling again after every
// change to the sources.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	cfg := a.config

	if cfg.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(cfg.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer()
	}

	edits, err := a.hostEdits()
	if err != nil {
		return err
	}

	host := sandbox.New(sandbox.Options{
		Timeout: cfg.Timeout,
		Layout: layout.Options{
			MaxIterations: cfg.MaxIterations,
			Tolerance:     cfg.Tolerance,
		},
		ExtraEdits: edits,
		Strict:     cfg.Strict,
		Metrics:    a.metrics,
	})
	defer host.Close()

	if cfg.Watch {
		return a.watch(ctx, host, edits)
	}
	return a.settle(ctx, host, edits)
}

// settle loads the sources, runs them through host and writes the results.
func (a *App) settle(ctx context.Context, host *sandbox.Host, edits []*manualedits.Set) error {
	cfg := a.config
	files, err := vfs.LoadDir(cfg.RootDir, frontend.Extensions...)
	if err != nil {
		return err
	}
	a.logger.Debug("Sources loaded.", "root", cfg.RootDir, "files", files.Len())

	a.logger.Info("🚀 Evaluating circuit...", "entrypoint", cfg.entry())
	doc, err := host.Run(ctx, files, cfg.entry())
	if err != nil {
		return fmt.Errorf("circuit %s failed: %w", cfg.entry(), err)
	}

	if err := a.writeDocument(doc); err != nil {
		return err
	}
	if len(cfg.Places) > 0 && !a.editsWritten {
		if err := a.writeEdits(edits[0]); err != nil {
			return err
		}
		a.editsWritten = true
	}
	if cfg.PublishURL != "" {
		p := publish.SocketIO{URL: cfg.PublishURL, Namespace: cfg.PublishNamespace, Event: cfg.PublishEvent}
		if _, err := p.Publish(ctx, doc); err != nil {
			return fmt.Errorf("failed to publish circuit: %w", err)
		}
	}

	a.logger.Info("🏁 Circuit settled.", "records", doc.Len())
	return nil
}

// hostEdits loads the host-level edit set and records the requested
// placements into it. The returned slice is empty when there is nothing to
// apply.
func (a *App) hostEdits() ([]*manualedits.Set, error) {
	cfg := a.config
	var set *manualedits.Set
	if cfg.EditsPath != "" {
		data, err := os.ReadFile(cfg.EditsPath)
		switch {
		case err == nil:
			if set, err = manualedits.Parse(data); err != nil {
				return nil, fmt.Errorf("failed to load manual edits %s: %w", cfg.EditsPath, err)
			}
		case errors.Is(err, fs.ErrNotExist) && len(cfg.Places) > 0:
			a.logger.Debug("Manual edits file does not exist yet.", "path", cfg.EditsPath)
		default:
			return nil, fmt.Errorf("failed to read manual edits: %w", err)
		}
	}
	if len(cfg.Places) > 0 && set == nil {
		set = manualedits.Empty()
	}
	for _, p := range cfg.Places {
		set.RecordPlacement(p)
		a.logger.Debug("Placement recorded.", "selector", p.Selector, "x", p.Center.X, "y", p.Center.Y)
	}
	if set == nil {
		return nil, nil
	}
	return []*manualedits.Set{set}, nil
}

func (a *App) writeDocument(doc circuitdoc.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode circuit document: %w", err)
	}
	data = append(data, '\n')
	if a.config.OutputPath == "" {
		_, err = a.outW.Write(data)
		return err
	}
	if err := os.WriteFile(a.config.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write circuit document: %w", err)
	}
	a.logger.Info("Circuit document written.", "path", a.config.OutputPath)
	return nil
}

func (a *App) writeEdits(set *manualedits.Set) error {
	data, err := set.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.config.EditsOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manual edits: %w", err)
	}
	a.logger.Info("Manual edits written.", "path", a.config.EditsOut, "placements", len(set.Placements))
	return nil
}
