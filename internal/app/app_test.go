// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/app"
	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/circuitdoc"
	"github.com/vk/circuitgo/internal/manualedits"
	harness "github.com/vk/circuitgo/internal/testutil"
)

const boardTSX = `
circuit.add(
  <board width="10mm" height="10mm">
    <resistor name="R1" resistance="1k" footprint="0402" />
  </board>
)`

func TestRun_WritesDocument(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{"main.tsx": boardTSX}

	// --- Act ---
	result := harness.RunIntegrationTest(t, files, "main.tsx", nil)

	// --- Assert ---
	require.NoError(t, result.Err)
	doc := result.Document(t)
	r1, ok := doc.FindByName("R1")
	require.True(t, ok)
	require.Equal(t, circuitdoc.TypeComponent, r1.Type)
	require.Contains(t, result.LogOutput, "Circuit settled.")
	require.Equal(t, 1.0, testutil.ToFloat64(result.App.Metrics().RunsTotal.WithLabelValues("execute", "ok")))
}

func TestRun_MissingPropertyFails(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{"circuits/main.hcl": `
board {
  resistor "R1" {
    footprint = "0402"
  }
}`}

	// --- Act ---
	result := harness.RunIntegrationTest(t, files, "circuits/main.hcl", nil)

	// --- Assert ---
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "resistance")
	require.Empty(t, result.Output, "no document is written for a failed run")
}

func TestRun_RecordsPlacements(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{"main.tsx": boardTSX}
	var editsPath string
	configure := func(cfg *app.Config) {
		editsPath = filepath.Join(filepath.Dir(cfg.Entrypoint), "host-edits.json")
		cfg.EditsPath = editsPath
		cfg.Places = []manualedits.Placement{
			{Selector: "R1", Center: manualedits.Point{X: 5, Y: 5}},
		}
	}

	// --- Act ---
	result := harness.RunIntegrationTest(t, files, "main.tsx", configure)

	// --- Assert ---
	require.NoError(t, result.Err)
	r1, _ := result.Document(t).FindByName("R1")
	require.Equal(t, &circuit.Point{X: 5, Y: 5}, r1.Center)

	data, err := os.ReadFile(editsPath)
	require.NoError(t, err)
	saved, err := manualedits.Parse(data)
	require.NoError(t, err)
	require.Equal(t, []manualedits.Placement{
		{Selector: "R1", Center: manualedits.Point{X: 5, Y: 5}, RelativeTo: manualedits.RelativeToGroupCenter},
	}, saved.Placements)
}

func TestRun_OutputPath(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{"main.tsx": boardTSX}
	var outPath string
	configure := func(cfg *app.Config) {
		outPath = filepath.Join(filepath.Dir(cfg.Entrypoint), "out", "circuit.json")
		require.NoError(t, os.MkdirAll(filepath.Dir(outPath), 0o755))
		cfg.OutputPath = outPath
	}

	// --- Act ---
	result := harness.RunIntegrationTest(t, files, "main.tsx", configure)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Empty(t, result.Output)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	doc, err := circuitdoc.Parse(data)
	require.NoError(t, err)
	_, ok := doc.FindByName("R1")
	require.True(t, ok)
}

func TestRun_StrictSelectors(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.tsx":   boardTSX,
		"edits.json": `{"pcb_placements": [{"selector": "U7", "center": {"x": 1, "y": 1}}]}`,
	}
	configure := func(cfg *app.Config) {
		cfg.EditsPath = filepath.Join(filepath.Dir(cfg.Entrypoint), "edits.json")
		cfg.Strict = true
	}

	// --- Act ---
	result := harness.RunIntegrationTest(t, files, "main.tsx", configure)

	// --- Assert ---
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "U7")
}

func TestRun_WatchSettlesAgainOnChange(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.tsx")
	outPath := filepath.Join(dir, "circuit.json")
	require.NoError(t, os.WriteFile(entry, []byte(boardTSX), 0o644))
	cfg, err := app.NewConfig(app.Config{
		Entrypoint:    entry,
		OutputPath:    outPath,
		Watch:         true,
		WatchDebounce: 20 * time.Millisecond,
		LogLevel:      "debug",
		LogFormat:     "text",
	})
	require.NoError(t, err)
	logs := &harness.SafeBuffer{}
	testApp := app.NewApp(io.Discard, logs, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- testApp.Run(ctx) }()

	hasComponent := func(name string) func() bool {
		return func() bool {
			data, err := os.ReadFile(outPath)
			if err != nil {
				return false
			}
			doc, err := circuitdoc.Parse(data)
			if err != nil {
				return false
			}
			_, ok := doc.FindByName(name)
			return ok
		}
	}
	logged := func(msg string) func() bool {
		return func() bool { return strings.Contains(logs.String(), msg) }
	}
	require.Eventually(t, hasComponent("R1"), 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, logged("Watching for changes"), 5*time.Second, 20*time.Millisecond)

	// --- Act ---
	broken := strings.ReplaceAll(boardTSX, ` resistance="1k"`, "")
	require.NoError(t, os.WriteFile(entry, []byte(broken), 0o644))
	require.Eventually(t, logged("Circuit failed."), 5*time.Second, 20*time.Millisecond)
	require.NoError(t, os.WriteFile(entry, []byte(strings.ReplaceAll(boardTSX, "R1", "R2")), 0o644))

	// --- Assert ---
	require.Eventually(t, hasComponent("R2"), 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Contains(t, logs.String(), "resistance")
}
