// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/vk/circuitgo/internal/frontend"
	"github.com/vk/circuitgo/internal/manualedits"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Entrypoint string // Path of the entry file on disk.
	RootDir    string // Directory loaded into the virtual file map. Defaults to the entrypoint's directory.
	OutputPath string // Where the document is written. Empty means the app's output writer.

	EditsPath string                  // Host-level manual edits file applied to the whole circuit.
	Places    []manualedits.Placement // Placements to record into EditsOut.
	EditsOut  string                  // Defaults to EditsPath.

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	Timeout       time.Duration
	MaxIterations int
	Tolerance     float64
	Strict        bool

	PublishURL       string
	PublishNamespace string
	PublishEvent     string

	Watch         bool          // Keep running and settle again whenever a source changes.
	WatchDebounce time.Duration // Quiet period before a burst of changes triggers a run.
}

// NewConfig validates cfg and fills in derived defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Entrypoint == "" {
		return nil, errors.New("Entrypoint is a required configuration field and cannot be empty")
	}
	ext := strings.ToLower(path.Ext(filepath.ToSlash(cfg.Entrypoint)))
	if ext == ".json" || !slices.Contains(frontend.Extensions, ext) {
		return nil, fmt.Errorf("unsupported entrypoint %q: expected one of .hcl, .tsx, .jsx", cfg.Entrypoint)
	}
	if cfg.RootDir == "" {
		cfg.RootDir = filepath.Dir(cfg.Entrypoint)
	}
	rel, err := filepath.Rel(cfg.RootDir, cfg.Entrypoint)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("entrypoint %q is outside the root directory %q", cfg.Entrypoint, cfg.RootDir)
	}

	if cfg.Timeout < 0 {
		return nil, errors.New("Timeout cannot be negative")
	}
	if cfg.MaxIterations < 0 {
		return nil, errors.New("MaxIterations cannot be negative")
	}
	if cfg.Tolerance < 0 {
		return nil, errors.New("Tolerance cannot be negative")
	}
	if cfg.WatchDebounce < 0 {
		return nil, errors.New("WatchDebounce cannot be negative")
	}

	if cfg.EditsOut == "" {
		cfg.EditsOut = cfg.EditsPath
	}
	if len(cfg.Places) > 0 && cfg.EditsOut == "" {
		return nil, errors.New("recording placements needs an edits file: set EditsPath or EditsOut")
	}

	return &cfg, nil
}

// entry returns the entrypoint as a path inside the virtual file map.
func (c *Config) entry() string {
	rel, _ := filepath.Rel(c.RootDir, c.Entrypoint)
	return filepath.ToSlash(rel)
}
