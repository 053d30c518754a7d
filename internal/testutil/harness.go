// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/app"
	"github.com/vk/circuitgo/internal/circuitdoc"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Output    string // What the app wrote to its output writer.
	Err       error
	App       *app.App
	Dir       string // The temporary root the files were written to.
}

// Document parses the document the run wrote to its output writer.
func (r *HarnessResult) Document(t *testing.T) circuitdoc.Document {
	t.Helper()
	doc, err := circuitdoc.Parse([]byte(r.Output))
	require.NoError(t, err)
	return doc
}

// RunIntegrationTest provides a standardized harness for running integration
// tests using a default background context. files maps paths relative to a
// temporary root to their content; entry names the entrypoint among them.
// configure, when non-nil, adjusts the configuration before validation.
func RunIntegrationTest(t *testing.T, files map[string]string, entry string, configure func(cfg *app.Config)) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, entry, configure)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, entry string, configure func(cfg *app.Config)) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	cfg := app.Config{
		Entrypoint: filepath.Join(tmpDir, filepath.FromSlash(entry)),
		LogLevel:   "debug",
		LogFormat:  "text",
	}
	if configure != nil {
		configure(&cfg)
	}
	validated, err := app.NewConfig(cfg)
	if err != nil {
		return &HarnessResult{Err: err, Dir: tmpDir}
	}

	logBuffer := &SafeBuffer{}
	out := &SafeBuffer{}
	testApp := app.NewApp(out, logBuffer, validated)
	runErr := testApp.Run(ctx)

	if os.Getenv("CIRCUITGO_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Output:    out.String(),
		Err:       runErr,
		App:       testApp,
		Dir:       tmpDir,
	}
}
