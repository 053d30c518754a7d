// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package layout

import (
	"math"

	"github.com/vk/circuitgo/internal/circuit"
)

// route draws a Manhattan path between the two ends of a trace, passing
// through any waypoints hinted for its ports. A trace whose net end has no
// component port to attach to gets no route.
func route(graph *circuit.Graph, t *circuit.TraceSpec, ports map[string]circuit.Point, hints map[string][]circuit.Point) []circuit.Point {
	from, okFrom := ports[t.From.Key()]
	to, okTo := ports[t.To.Key()]
	switch {
	case okFrom && okTo:
	case okFrom:
		to, okTo = nearestOnNet(graph, t.To, t.From.Key(), from, ports)
	case okTo:
		from, okFrom = nearestOnNet(graph, t.From, t.To.Key(), to, ports)
	default:
		// Net to net: attach each end to its port nearest the origin.
		from, okFrom = nearestOnNet(graph, t.From, "", circuit.Point{}, ports)
		to, okTo = nearestOnNet(graph, t.To, "", circuit.Point{}, ports)
	}
	if !okFrom || !okTo {
		return nil
	}

	stops := []circuit.Point{from}
	stops = append(stops, hints[t.From.Key()]...)
	stops = append(stops, hints[t.To.Key()]...)
	stops = append(stops, to)

	path := []circuit.Point{from}
	for _, next := range stops[1:] {
		cur := path[len(path)-1]
		if cur.X != next.X && cur.Y != next.Y {
			path = append(path, circuit.Point{X: next.X, Y: cur.Y})
		}
		path = append(path, next)
	}
	return dedupe(path)
}

// nearestOnNet picks the component port on the net of ref that is closest to
// origin, skipping the trace's other end. Ties go to the port connected
// first. ref must name a net.
func nearestOnNet(graph *circuit.Graph, ref circuit.PortRef, skip string, origin circuit.Point, ports map[string]circuit.Point) (circuit.Point, bool) {
	if ref.Net == "" {
		return circuit.Point{}, false
	}
	group, err := graph.Connectivity.Group(ref.Key())
	if err != nil {
		return circuit.Point{}, false
	}
	var (
		best  circuit.Point
		found bool
		bestD = math.Inf(1)
	)
	for _, key := range group {
		p, ok := ports[key]
		if !ok || key == skip {
			continue
		}
		if d := math.Abs(p.X-origin.X) + math.Abs(p.Y-origin.Y); d < bestD {
			best, bestD, found = p, d, true
		}
	}
	return best, found
}

func dedupe(path []circuit.Point) []circuit.Point {
	out := path[:1]
	for _, p := range path[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
