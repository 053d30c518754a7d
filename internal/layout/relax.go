// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package layout

import (
	"math"

	"github.com/vk/circuitgo/internal/circuit"
)

// overlapEpsilon absorbs rounding in grid arithmetic; smaller overlaps are
// treated as touching.
const overlapEpsilon = 1e-9

// relax pushes the free components of a board clear of their obstacles:
// every pinned or edited sibling, and every free sibling declared earlier.
// Earlier free siblings are seen where they stood at the start of the pass,
// so a push that lands on another component is only resolved by the next
// pass. That is what makes the settlement loop iterate. Later siblings never
// push earlier ones, which rules out two free components chasing each other.
func relax(graph *circuit.Graph, board *circuit.Element, geo map[string]*Geometry) {
	var fixed, free []*circuit.Element
	for _, el := range graph.Children(board.ID) {
		if el.Kind != circuit.KindComponent {
			continue
		}
		if g := geo[el.ID]; g.pinned || g.Edited {
			fixed = append(fixed, el)
		} else {
			free = append(free, el)
		}
	}

	start := make([]circuit.Point, len(free))
	for i, el := range free {
		start[i] = geo[el.ID].Center
	}
	for i, el := range free {
		g := geo[el.ID]
		for _, o := range fixed {
			g.Center = g.Center.Add(separation(g, geo[o.ID].Center, geo[o.ID]))
		}
		for j, o := range free[:i] {
			g.Center = g.Center.Add(separation(g, start[j], geo[o.ID]))
		}
	}
}

// separation is the smallest axis-aligned move that leaves g a grid gap away
// from an obstacle of o's size centered at at. Ties push along Y; coincident
// centers push towards positive coordinates.
func separation(g *Geometry, at circuit.Point, o *Geometry) circuit.Point {
	dx := g.Center.X - at.X
	dy := g.Center.Y - at.Y
	overlapX := (g.Width+o.Width)/2 + gridGap - math.Abs(dx)
	overlapY := (g.Height+o.Height)/2 + gridGap - math.Abs(dy)
	if overlapX <= overlapEpsilon || overlapY <= overlapEpsilon {
		return circuit.Point{}
	}
	if overlapX < overlapY {
		return circuit.Point{X: sign(dx) * overlapX}
	}
	return circuit.Point{Y: sign(dy) * overlapY}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
