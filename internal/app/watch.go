// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vk/circuitgo/internal/frontend"
	"github.com/vk/circuitgo/internal/manualedits"
	"github.com/vk/circuitgo/internal/sandbox"
	"github.com/vk/circuitgo/internal/watch"
)

// watch settles once, then again after every burst of source changes until
// ctx ends. A change that arrives mid-run aborts that run. Failures are
// logged rather than returned so the loop survives broken intermediate saves.
func (a *App) watch(ctx context.Context, host *sandbox.Host, edits []*manualedits.Set) error {
	cfg := a.config
	w, err := watch.New(cfg.RootDir, cfg.WatchDebounce, frontend.Extensions...)
	if err != nil {
		return err
	}
	defer w.Close()

	a.report(a.settle(ctx, host, edits))

	// The app's own outputs may live under the root; writing them must not
	// trigger another run.
	own := make(map[string]bool)
	for _, p := range []string{cfg.OutputPath, cfg.EditsOut} {
		if p != "" {
			own[absPath(p)] = true
		}
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	a.logger.Info("👀 Watching for changes...", "root", cfg.RootDir)
	return w.Run(ctx, func(ctx context.Context, paths []string) {
		paths = slices.DeleteFunc(paths, func(p string) bool { return own[absPath(p)] })
		if len(paths) == 0 {
			return
		}
		a.logger.Info("🔁 Sources changed.", "paths", paths)
		host.Abort()
		wg.Wait()
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.report(a.settle(ctx, host, edits))
		}()
	})
}

func (a *App) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, sandbox.ErrAborted), errors.Is(err, sandbox.ErrNoRun):
		a.logger.Debug("Run superseded by newer sources.", "error", err)
	default:
		a.logger.Error("❌ Circuit failed.", "error", err)
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
