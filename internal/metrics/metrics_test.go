// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/layout"
	"github.com/vk/circuitgo/internal/overlay"
)

func TestMetrics_ObserveRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m := New()

	// --- Act ---
	m.ObserveRun("execute", "ok", 10*time.Millisecond)
	m.ObserveRun("execute", "ok", 20*time.Millisecond)
	m.ObserveRun("execute", "validation", time.Millisecond)

	// --- Assert ---
	require.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("execute", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("execute", "validation")))
}

func TestMetrics_ObserveSettlement(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m := New()
	settled := &layout.Settled{
		State: &layout.State{Iteration: 16, Forced: true},
		Edits: overlay.Result{Applied: 3, Unmatched: []string{"R9"}},
	}

	// --- Act ---
	m.ObserveSettlement(settled)

	// --- Assert ---
	require.Equal(t, 1.0, testutil.ToFloat64(m.ForcedSettlements))
	require.Equal(t, 3.0, testutil.ToFloat64(m.EditsApplied))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SelectorsUnmatched))
	require.Equal(t, 1, testutil.CollectAndCount(m.SettleIterations))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m := New()
	m.ObserveRun("settle", "ok", time.Millisecond)
	rec := httptest.NewRecorder()

	// --- Act ---
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	// --- Assert ---
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `circuitgo_requests_total{op="settle",outcome="ok"} 1`)
}
