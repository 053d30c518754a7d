// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package layout

import (
	"context"
	"math"
	"runtime"

	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/footprint"
	"golang.org/x/sync/errgroup"
)

// shape is the placement-independent geometry of a component.
type shape struct {
	Width, Height float64
	Rotation      int
	Layer         string
	Pads          []footprint.Pad
}

// componentShapes derives the shape of every component. Above threshold the
// work is spread over a bounded worker group; each result lands in its own
// slot, so the output order never depends on scheduling.
func componentShapes(ctx context.Context, comps []*circuit.Element, threshold int) (map[string]shape, error) {
	out := make([]shape, len(comps))
	if len(comps) < threshold {
		for i, el := range comps {
			out[i] = shapeOf(el)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, el := range comps {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return circuiterr.FromContext(gctx, "settlement")
				}
				out[i] = shapeOf(el)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	byID := make(map[string]shape, len(comps))
	for i, el := range comps {
		byID[el.ID] = out[i]
	}
	return byID, nil
}

func shapeOf(el *circuit.Element) shape {
	spec := el.Component()
	pads := make([]footprint.Pad, len(spec.Footprint.Pads))
	copy(pads, spec.Footprint.Pads)
	if spec.Layer == "bottom" {
		// Seen from the top, bottom-side parts are mirrored left to right.
		for i := range pads {
			pads[i].X = -pads[i].X
		}
	}
	return shape{
		Width:    spec.Footprint.Width,
		Height:   spec.Footprint.Height,
		Rotation: spec.Rotation,
		Layer:    spec.Layer,
		Pads:     pads,
	}
}

// autoLayout records the automatic, pre-edit layout that manual edits are
// resolved against.
type autoLayout struct {
	centers map[string]circuit.Point
	groups  map[string]circuit.Point
}

func newAutoLayout() *autoLayout {
	return &autoLayout{
		centers: make(map[string]circuit.Point),
		groups:  make(map[string]circuit.Point),
	}
}

func (a *autoLayout) Center(id string) (circuit.Point, bool) {
	p, ok := a.centers[id]
	return p, ok
}

func (a *autoLayout) GroupCenter(id string) (circuit.Point, bool) {
	p, ok := a.groups[id]
	return p, ok
}

// placeBoard positions the components of one board. Components with an
// explicit pcb_x/pcb_y sit at that offset from the board center; the rest
// fill a grid centered on the board, in declaration order, row by row from
// the top. Cells are sized by the largest component, so auto-placed siblings
// never overlap each other.
//
// The grid is what manual edits are resolved against. Where prev holds the
// previous pass, a free component starts from its relaxed center there
// instead of its grid cell.
func placeBoard(graph *circuit.Graph, board *circuit.Element, shapes map[string]shape, geo, prev map[string]*Geometry, auto *autoLayout) {
	spec := board.Board()
	center := spec.Center
	geo[board.ID] = &Geometry{Center: center, Width: spec.Width, Height: spec.Height}
	auto.centers[board.ID] = center

	var gridded []*circuit.Element
	var cellW, cellH float64
	for _, el := range graph.Children(board.ID) {
		if el.Kind != circuit.KindComponent {
			continue
		}
		s := shapes[el.ID]
		g := &Geometry{Width: s.Width, Height: s.Height, Rotation: s.Rotation, Layer: s.Layer}
		geo[el.ID] = g
		auto.groups[el.ID] = center
		if p := el.Component().Placement; p != nil {
			g.Center = center.Add(*p)
			g.pinned = true
			auto.centers[el.ID] = g.Center
			continue
		}
		gridded = append(gridded, el)
		cellW = math.Max(cellW, s.Width)
		cellH = math.Max(cellH, s.Height)
	}
	if len(gridded) == 0 {
		return
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(gridded)))))
	rows := (len(gridded) + cols - 1) / cols
	cellW += gridGap
	cellH += gridGap
	for i, el := range gridded {
		col, row := i%cols, i/cols
		p := circuit.Point{
			X: center.X + (float64(col)-float64(cols-1)/2)*cellW,
			Y: center.Y + (float64(rows-1)/2-float64(row))*cellH,
		}
		geo[el.ID].Center = p
		auto.centers[el.ID] = p
		if pg, ok := prev[el.ID]; ok && !pg.Edited && !pg.pinned {
			geo[el.ID].Center = pg.Center
		}
	}
}

// sizeBoard fits auto-sized boards around their final content plus margin.
// An empty auto-sized board is a square of twice the margin.
func sizeBoard(graph *circuit.Graph, board *circuit.Element, geo map[string]*Geometry) {
	spec := board.Board()
	if !spec.AutoSize {
		return
	}
	g := geo[board.ID]
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, el := range graph.Children(board.ID) {
		c, ok := geo[el.ID]
		if !ok || el.Kind != circuit.KindComponent {
			continue
		}
		minX = math.Min(minX, c.Center.X-c.Width/2)
		maxX = math.Max(maxX, c.Center.X+c.Width/2)
		minY = math.Min(minY, c.Center.Y-c.Height/2)
		maxY = math.Max(maxY, c.Center.Y+c.Height/2)
	}
	if math.IsInf(minX, 1) {
		g.Width, g.Height = 2*spec.Margin, 2*spec.Margin
		return
	}
	g.Center = circuit.Point{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}
	g.Width = maxX - minX + 2*spec.Margin
	g.Height = maxY - minY + 2*spec.Margin
}

// placePads moves the pads of a component to board coordinates and records
// each port position.
func placePads(el *circuit.Element, s shape, g *Geometry, ports map[string]circuit.Point) {
	g.Pads = make([]PlacedPad, 0, len(s.Pads))
	for _, p := range s.Pads {
		key := circuit.PortKey(el.ID, p.Number)
		center := g.Center.Add(circuit.Point{X: p.X, Y: p.Y})
		g.Pads = append(g.Pads, PlacedPad{
			Number:  p.Number,
			PortKey: key,
			Center:  center,
			Width:   p.Width,
			Height:  p.Height,
			Shape:   p.Shape,
			Plated:  p.Plated,
		})
		ports[key] = center
	}
}
