// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/manualedits"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "missing entrypoint", cfg: Config{}, wantErr: "Entrypoint is a required"},
		{name: "json entrypoint", cfg: Config{Entrypoint: "board/edits.json"}, wantErr: "unsupported entrypoint"},
		{name: "unknown extension", cfg: Config{Entrypoint: "board/main.py"}, wantErr: "unsupported entrypoint"},
		{name: "outside root", cfg: Config{Entrypoint: "a/main.tsx", RootDir: "b"}, wantErr: "outside the root"},
		{name: "negative timeout", cfg: Config{Entrypoint: "main.hcl", Timeout: -time.Second}, wantErr: "Timeout"},
		{
			name:    "placements without edits file",
			cfg:     Config{Entrypoint: "main.tsx", Places: []manualedits.Placement{{Selector: "R1"}}},
			wantErr: "edits file",
		},
		{name: "valid", cfg: Config{Entrypoint: "board/main.TSX"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := NewConfig(tc.cfg)

			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "board", cfg.RootDir)
			require.Equal(t, "main.TSX", cfg.entry())
		})
	}
}

func TestNewConfig_EditsOutDefaultsToEditsPath(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(Config{Entrypoint: "main.hcl", EditsPath: "edits.json"})

	require.NoError(t, err)
	require.Equal(t, "edits.json", cfg.EditsOut)
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "circuitgo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
output = "circuit.json"

[log]
level = "debug"

[layout]
timeout        = "3s"
max_iterations = 4
strict         = true

[publish]
url = "ws://localhost:3000/socket.io/"
`), 0o644))
	cfg := Config{Entrypoint: "main.tsx", LogLevel: "info", LogFormat: "json"}

	// --- Act ---
	s, err := LoadSettings(path)
	require.NoError(t, err)
	s.Apply(&cfg)

	// --- Assert ---
	require.Equal(t, "circuit.json", cfg.OutputPath)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat, "unset values keep their defaults")
	require.Equal(t, 3*time.Second, cfg.Timeout)
	require.Equal(t, 4, cfg.MaxIterations)
	require.True(t, cfg.Strict)
	require.Equal(t, "ws://localhost:3000/socket.io/", cfg.PublishURL)
}

func TestLoadSettings_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "circuitgo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[layout]\nmax_iteration = 4\n"), 0o644))

	_, err := LoadSettings(path)

	require.ErrorContains(t, err, "layout.max_iteration")
}

func TestLoadSettings_YAML(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "circuitgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
edits: edits.json
watch: true
layout:
  timeout: 750ms
  tolerance: 0.01
healthcheck:
  port: 8080
`), 0o644))
	cfg := Config{Entrypoint: "main.hcl"}

	// --- Act ---
	s, err := LoadSettings(path)
	require.NoError(t, err)
	s.Apply(&cfg)

	// --- Assert ---
	require.Equal(t, "edits.json", cfg.EditsPath)
	require.True(t, cfg.Watch)
	require.Equal(t, 750*time.Millisecond, cfg.Timeout)
	require.Equal(t, 0.01, cfg.Tolerance)
	require.Equal(t, 8080, cfg.HealthcheckPort)
}

func TestLoadSettings_YAMLRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "circuitgo.yml")
	require.NoError(t, os.WriteFile(path, []byte("layout:\n  max_iteration: 4\n"), 0o644))

	_, err := LoadSettings(path)

	require.ErrorContains(t, err, "unknown settings")
	require.ErrorContains(t, err, "max_iteration")
}

func TestLoadSettings_EmptyYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "circuitgo.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := LoadSettings(path)

	require.NoError(t, err)
	require.Equal(t, &Settings{}, s)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)

	// --- Act ---
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	// --- Assert ---
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"key":"value"`)
}
