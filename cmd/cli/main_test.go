// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/cli"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func TestRun_SettlesCircuit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := writeFiles(t, map[string]string{
		"main.tsx": `
import manualEdits from "./manual-edits.json"
circuit.add(
  <board width="20mm" height="20mm" manualEdits={manualEdits}>
    <resistor name="R1" resistance="10k" footprint="0402" />
  </board>
)`,
		"manual-edits.json": `{"pcb_placements": [{"selector": "R1", "center": {"x": 5, "y": 5}, "relative_to": "group_center"}], "edit_events": [], "manual_trace_hints": []}`,
	})
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, logs, []string{filepath.Join(dir, "main.tsx")})

	// --- Assert ---
	require.NoError(t, err, logs.String())
	var records []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	var r1 map[string]any
	for _, r := range records {
		if r["name"] == "R1" {
			r1 = r
		}
	}
	require.NotNil(t, r1)
	require.Equal(t, map[string]any{"x": 5.0, "y": 5.0}, r1["center"])
}

func TestRun_ValidationError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := writeFiles(t, map[string]string{"main.hcl": `
board {
  resistor "R1" {
    footprint = "0402"
  }
}`})
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{filepath.Join(dir, "main.hcl")})

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), `missing required property "resistance"`)
	require.Empty(t, out.String())
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	errW := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, errW, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, errW.String(), "Usage:", "Expected help text to be printed to the error writer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
