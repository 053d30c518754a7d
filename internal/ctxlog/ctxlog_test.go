// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_ReturnsEmbeddedLogger(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)

	// --- Act ---
	FromContext(With(ctx, "run_id", "abc")).Info("hello")

	// --- Assert ---
	require.Same(t, logger, FromContext(ctx))
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "run_id=abc")
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	require.Same(t, slog.Default(), FromContext(context.Background()))
}
