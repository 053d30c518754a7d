// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package layout

import (
	"context"
	"math"

	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/overlay"
)

const (
	DefaultMaxIterations     = 16
	DefaultTolerance         = 1e-6
	DefaultParallelThreshold = 64

	// gridGap is the clearance between neighbouring grid cells, in mm.
	gridGap = 1.0
)

// Options tunes the settlement loop. Zero values take the defaults.
type Options struct {
	MaxIterations int
	Tolerance     float64
	// ParallelThreshold is the component count from which per-component
	// geometry is computed concurrently.
	ParallelThreshold int
	Overlay           overlay.Options
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = DefaultParallelThreshold
	}
	return o
}

// PlacedPad is a footprint pad in board coordinates.
type PlacedPad struct {
	Number  int
	PortKey string
	Center  circuit.Point
	Width   float64
	Height  float64
	Shape   string
	Plated  bool
}

// Geometry is the working geometry of one board, component or trace.
type Geometry struct {
	Center   circuit.Point
	Width    float64
	Height   float64
	Rotation int
	Layer    string
	Pads     []PlacedPad
	Route    []circuit.Point
	Edited   bool // Center comes from a manual edit.

	pinned bool // Center comes from pcb_x/pcb_y.
}

// State is the settlement state of one run.
type State struct {
	Iteration int
	Converged bool
	Forced    bool // Stopped by the iteration budget rather than the tolerance.
	Delta     float64

	geometry map[string]*Geometry
}

// Geometry returns the settled geometry of an element. Nets have none.
func (s *State) Geometry(id string) (*Geometry, bool) {
	g, ok := s.geometry[id]
	return g, ok
}

// Settled is a graph together with its final geometry.
type Settled struct {
	Graph *circuit.Graph
	State *State
	Edits overlay.Result
}

// Settle runs layout passes until the largest positional change between two
// passes drops below the tolerance, or the iteration budget runs out. Running
// out of budget is not an error: the last pass is kept and State.Forced is
// set.
func Settle(ctx context.Context, graph *circuit.Graph, bindings []overlay.Binding, opts Options) (*Settled, error) {
	opts = opts.withDefaults()
	logger := ctxlog.FromContext(ctx)
	ix := overlay.NewIndex(graph)

	state := &State{}
	var (
		prev  map[string]*Geometry
		edits overlay.Result
	)
	for state.Iteration < opts.MaxIterations {
		if err := circuiterr.FromContext(ctx, "settlement"); err != nil {
			return nil, err
		}
		state.Iteration++

		next, res, err := pass(ctx, graph, ix, bindings, prev, opts)
		if err != nil {
			return nil, err
		}
		edits = res
		state.Delta = delta(graph, prev, next)
		state.geometry = next
		prev = next

		logger.Debug("Layout pass finished.", "iteration", state.Iteration, "delta", state.Delta)
		if state.Iteration >= 2 && state.Delta < opts.Tolerance {
			state.Converged = true
			break
		}
	}
	if !state.Converged {
		state.Converged = true
		state.Forced = true
		logger.Warn("Layout did not settle within the iteration budget; keeping the last pass.",
			"iterations", state.Iteration, "delta", state.Delta)
	}
	for _, sel := range edits.Unmatched {
		logger.Warn("Manual edit selector matched nothing and was ignored.", "selector", sel)
	}

	logger.Info("Layout settled.",
		"iterations", state.Iteration,
		"forced", state.Forced,
		"edits_applied", edits.Applied,
		"edits_unmatched", len(edits.Unmatched),
	)
	return &Settled{Graph: graph, State: state, Edits: edits}, nil
}

// pass computes the geometry of every element. Pinned and edited components
// are placed from scratch; free components continue from where prev left
// them and are pushed clear of their neighbours.
func pass(ctx context.Context, graph *circuit.Graph, ix *overlay.Index, bindings []overlay.Binding, prev map[string]*Geometry, opts Options) (map[string]*Geometry, overlay.Result, error) {
	comps := graph.OfKind(circuit.KindComponent)
	base, err := componentShapes(ctx, comps, opts.ParallelThreshold)
	if err != nil {
		return nil, overlay.Result{}, err
	}

	geo := make(map[string]*Geometry, graph.Len())
	auto := newAutoLayout()
	for _, board := range graph.OfKind(circuit.KindBoard) {
		placeBoard(graph, board, base, geo, prev, auto)
	}

	var edits overlay.Result
	for _, b := range bindings {
		res, err := overlay.Apply(ctx, ix, auto, b, opts.Overlay)
		if err != nil {
			return nil, overlay.Result{}, err
		}
		edits.Merge(res)
	}
	for _, mv := range edits.Moves {
		if g, ok := geo[mv.ElementID]; ok {
			g.Center = mv.Center
			g.Edited = true
		}
	}

	for _, board := range graph.OfKind(circuit.KindBoard) {
		relax(graph, board, geo)
		sizeBoard(graph, board, geo)
	}
	ports := make(map[string]circuit.Point)
	for _, el := range comps {
		placePads(el, base[el.ID], geo[el.ID], ports)
	}

	hints := make(map[string][]circuit.Point)
	for _, h := range edits.Hints {
		hints[h.PortKey] = h.Waypoints
	}
	for _, el := range graph.OfKind(circuit.KindTrace) {
		geo[el.ID] = &Geometry{Route: route(graph, el.Trace(), ports, hints)}
	}
	return geo, edits, nil
}

// delta is the largest change of any coordinate between two passes. The first
// pass has nothing to compare against and reports +Inf.
func delta(graph *circuit.Graph, prev, next map[string]*Geometry) float64 {
	if prev == nil {
		return math.Inf(1)
	}
	var d float64
	for _, el := range graph.Elements() {
		a, okA := prev[el.ID]
		b, okB := next[el.ID]
		if okA != okB {
			return math.Inf(1)
		}
		if !okA {
			continue
		}
		if len(a.Route) != len(b.Route) {
			return math.Inf(1)
		}
		d = math.Max(d, dist(a.Center, b.Center))
		d = math.Max(d, math.Abs(a.Width-b.Width))
		d = math.Max(d, math.Abs(a.Height-b.Height))
		for i := range a.Route {
			d = math.Max(d, dist(a.Route[i], b.Route[i]))
		}
	}
	return d
}

func dist(a, b circuit.Point) float64 {
	return math.Max(math.Abs(a.X-b.X), math.Abs(a.Y-b.Y))
}
