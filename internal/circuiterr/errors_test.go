// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package circuiterr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMissingProperty_NamesProperty(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := MissingProperty("resistor", "R1", "resistance")

	// --- Assert ---
	require.Equal(t, KindValidation, err.Kind)
	require.Equal(t, "resistance", err.Property)
	require.Equal(t, "R1", err.Element)
	require.Contains(t, err.Error(), "resistance")
	require.Contains(t, err.Error(), "R1")
}

func TestIs_UnwrapsChain(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	inner := New(KindOverlayMismatch, "selector %q matched nothing", "U9")
	wrapped := fmt.Errorf("applying edits: %w", inner)

	// --- Act & Assert ---
	require.True(t, Is(wrapped, KindOverlayMismatch))
	require.False(t, Is(wrapped, KindValidation))
	require.Equal(t, KindOverlayMismatch, KindOf(wrapped))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestTimeout_KeepsDeadlineCause(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := Timeout(nil, "settlement")

	// --- Assert ---
	require.True(t, Is(err, KindTimeout))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "settlement")
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		ctx      func() context.Context
		wantKind Kind
	}{
		{
			name:     "live context",
			ctx:      context.Background,
			wantKind: "",
		},
		{
			name: "deadline exceeded",
			ctx: func() context.Context {
				ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
				cancel()
				return ctx
			},
			wantKind: KindTimeout,
		},
		{
			name: "cancelled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantKind: KindEvaluation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			err := FromContext(tc.ctx(), "evaluation")

			// --- Assert ---
			if tc.wantKind == "" {
				require.NoError(t, err)
				return
			}
			require.Equal(t, tc.wantKind, KindOf(err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, `resistor "R1" is missing required property "resistance"`,
		UserMessage(MissingProperty("resistor", "R1", "resistance")))
	require.Equal(t, "boom", UserMessage(errors.New("boom")))
	require.Equal(t, "bad: inner", UserMessage(Wrap(KindEvaluation, errors.New("inner"), "bad")))
}
