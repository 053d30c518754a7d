// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package metrics exposes run and settlement metrics for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/circuitgo/internal/layout"
)

// Metrics records sandbox activity. It implements sandbox.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	SettleIterations   prometheus.Histogram
	ForcedSettlements  prometheus.Counter
	EditsApplied       prometheus.Counter
	SelectorsUnmatched prometheus.Counter
}

// New registers the circuitgo metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuitgo_requests_total",
				Help: "Sandbox requests by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "circuitgo_request_duration_seconds",
				Help:    "Time taken to serve sandbox requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		SettleIterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "circuitgo_settle_iterations",
				Help:    "Layout passes needed to settle a circuit",
				Buckets: []float64{1, 2, 3, 4, 8, 16, 32, 64},
			},
		),
		ForcedSettlements: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "circuitgo_settle_forced_total",
				Help: "Settlements stopped by the iteration budget",
			},
		),
		EditsApplied: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "circuitgo_manual_edits_applied_total",
				Help: "Manual edits applied during settlement",
			},
		),
		SelectorsUnmatched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "circuitgo_manual_edit_selectors_unmatched_total",
				Help: "Manual edit selectors that matched nothing",
			},
		),
	}
}

// ObserveRun counts one served request.
func (m *Metrics) ObserveRun(op, outcome string, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(op, outcome).Inc()
	m.RunDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveSettlement records the outcome of a settlement.
func (m *Metrics) ObserveSettlement(s *layout.Settled) {
	m.SettleIterations.Observe(float64(s.State.Iteration))
	if s.State.Forced {
		m.ForcedSettlements.Inc()
	}
	m.EditsApplied.Add(float64(s.Edits.Applied))
	m.SelectorsUnmatched.Add(float64(len(s.Edits.Unmatched)))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
