// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package footprint holds the land patterns components can be placed with.
// Coordinates are millimetres relative to the footprint origin, with y
// pointing up.
package footprint

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pad is a single copper land of a footprint.
type Pad struct {
	Number int
	Names  []string // Extra hint names, e.g. "left" or "anode".
	X, Y   float64
	Width  float64
	Height float64
	Shape  string // "rect" or "circle"
	Plated bool   // Through-hole pads are plated holes.
}

// Footprint is the resolved land pattern of one component.
type Footprint struct {
	Name   string
	Pads   []Pad
	Width  float64 // Bounding box of pads and body.
	Height float64
}

// Pad resolves a pad reference: "1", "pin1", or one of the pad's names.
func (f Footprint) Pad(ref string) (Pad, bool) {
	ref = strings.ToLower(strings.TrimPrefix(ref, "."))
	num := strings.TrimPrefix(ref, "pin")
	if n, err := strconv.Atoi(num); err == nil {
		for _, p := range f.Pads {
			if p.Number == n {
				return p, true
			}
		}
		return Pad{}, false
	}
	for _, p := range f.Pads {
		for _, name := range p.Names {
			if name == ref {
				return p, true
			}
		}
	}
	return Pad{}, false
}

// Rotated returns a copy rotated counter-clockwise by deg, which must be a
// multiple of 90.
func (f Footprint) Rotated(deg int) (Footprint, error) {
	if deg%90 != 0 {
		return Footprint{}, fmt.Errorf("rotation %d is not a multiple of 90 degrees", deg)
	}
	turns := ((deg/90)%4 + 4) % 4
	out := Footprint{Name: f.Name, Width: f.Width, Height: f.Height}
	out.Pads = make([]Pad, len(f.Pads))
	copy(out.Pads, f.Pads)
	for range turns {
		for i, p := range out.Pads {
			p.X, p.Y = -p.Y, p.X
			p.Width, p.Height = p.Height, p.Width
			out.Pads[i] = p
		}
		out.Width, out.Height = out.Height, out.Width
	}
	for i := range out.Pads {
		out.Pads[i].X = clean(out.Pads[i].X)
		out.Pads[i].Y = clean(out.Pads[i].Y)
	}
	return out, nil
}

// Lookup resolves a footprint name such as "0402", "soic8" or "pinrow4".
func Lookup(name string) (Footprint, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
	if spec, ok := passives[key]; ok {
		return twoTerminal(key, spec), nil
	}
	if fixed, ok := fixedFootprints[key]; ok {
		return fixed(), nil
	}
	for _, pf := range parametric {
		rest, ok := strings.CutPrefix(key, pf.prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Footprint{}, fmt.Errorf("footprint %q: pin count %q is not a number", name, rest)
		}
		return pf.build(key, n)
	}
	return Footprint{}, fmt.Errorf("unknown footprint %q", name)
}

// passiveSpec describes a two-terminal SMD land pattern.
type passiveSpec struct {
	pitch     float64 // Pad center to pad center.
	padWidth  float64
	padHeight float64
}

var passives = map[string]passiveSpec{
	"0201": {pitch: 0.6, padWidth: 0.3, padHeight: 0.3},
	"0402": {pitch: 1.0, padWidth: 0.6, padHeight: 0.6},
	"0603": {pitch: 1.6, padWidth: 0.8, padHeight: 0.95},
	"0805": {pitch: 1.9, padWidth: 1.0, padHeight: 1.45},
	"1206": {pitch: 3.0, padWidth: 1.15, padHeight: 1.8},
	"1210": {pitch: 3.0, padWidth: 1.15, padHeight: 2.7},
	"2512": {pitch: 6.0, padWidth: 1.6, padHeight: 3.4},
}

func twoTerminal(name string, s passiveSpec) Footprint {
	return bounded(name, []Pad{
		{Number: 1, Names: []string{"left"}, X: -s.pitch / 2, Width: s.padWidth, Height: s.padHeight, Shape: "rect"},
		{Number: 2, Names: []string{"right"}, X: s.pitch / 2, Width: s.padWidth, Height: s.padHeight, Shape: "rect"},
	}, 0, 0)
}

var fixedFootprints = map[string]func() Footprint{
	"sot23": func() Footprint {
		return bounded("sot23", []Pad{
			{Number: 1, X: -0.95, Y: -1.1, Width: 0.6, Height: 0.7, Shape: "rect"},
			{Number: 2, X: 0.95, Y: -1.1, Width: 0.6, Height: 0.7, Shape: "rect"},
			{Number: 3, X: 0, Y: 1.1, Width: 0.6, Height: 0.7, Shape: "rect"},
		}, 2.9, 1.3)
	},
	"axial": func() Footprint {
		return bounded("axial", []Pad{
			{Number: 1, Names: []string{"left"}, X: -5.08, Width: 1.6, Height: 1.6, Shape: "circle", Plated: true},
			{Number: 2, Names: []string{"right"}, X: 5.08, Width: 1.6, Height: 1.6, Shape: "circle", Plated: true},
		}, 6.0, 2.5)
	},
	"led5mm": func() Footprint {
		return bounded("led5mm", []Pad{
			{Number: 1, Names: []string{"left"}, X: -1.27, Width: 1.8, Height: 1.8, Shape: "circle", Plated: true},
			{Number: 2, Names: []string{"right"}, X: 1.27, Width: 1.8, Height: 1.8, Shape: "circle", Plated: true},
		}, 5.8, 5.8)
	},
}

type parametricFootprint struct {
	prefix string
	build  func(name string, n int) (Footprint, error)
}

// parametric is ordered so that longer prefixes are tried first.
var parametric = []parametricFootprint{
	{prefix: "pinrow", build: pinRow},
	{prefix: "soic", build: dualRow(1.27, 5.4, 1.55, 0.6, "rect", false)},
	{prefix: "dip", build: dualRow(2.54, 7.62, 1.6, 1.6, "circle", true)},
}

func pinRow(name string, n int) (Footprint, error) {
	if n < 1 {
		return Footprint{}, fmt.Errorf("footprint %q needs at least one pin", name)
	}
	const pitch = 2.54
	pads := make([]Pad, n)
	start := -pitch * float64(n-1) / 2
	for i := range pads {
		pads[i] = Pad{Number: i + 1, X: clean(start + pitch*float64(i)), Width: 1.7, Height: 1.7, Shape: "circle", Plated: true}
	}
	return bounded(name, pads, 0, 0), nil
}

// dualRow builds SOIC/DIP style packages: pin 1 top left, numbering down the
// left side and back up the right side.
func dualRow(pitch, rowSpacing, padW, padH float64, shape string, plated bool) func(string, int) (Footprint, error) {
	return func(name string, n int) (Footprint, error) {
		if n < 4 || n%2 != 0 {
			return Footprint{}, fmt.Errorf("footprint %q needs an even pin count of at least 4", name)
		}
		half := n / 2
		top := pitch * float64(half-1) / 2
		pads := make([]Pad, 0, n)
		for i := range half {
			pads = append(pads, Pad{Number: i + 1, X: -rowSpacing / 2, Y: clean(top - pitch*float64(i)), Width: padW, Height: padH, Shape: shape, Plated: plated})
		}
		for i := range half {
			pads = append(pads, Pad{Number: half + i + 1, X: rowSpacing / 2, Y: clean(-top + pitch*float64(i)), Width: padW, Height: padH, Shape: shape, Plated: plated})
		}
		return bounded(name, pads, 0, 0), nil
	}
}

// bounded computes the footprint bounding box from its pads, widened to at
// least the given body size.
func bounded(name string, pads []Pad, bodyW, bodyH float64) Footprint {
	var maxX, maxY float64
	for _, p := range pads {
		maxX = math.Max(maxX, math.Abs(p.X)+p.Width/2)
		maxY = math.Max(maxY, math.Abs(p.Y)+p.Height/2)
	}
	return Footprint{
		Name:   name,
		Pads:   pads,
		Width:  clean(math.Max(2*maxX, bodyW)),
		Height: clean(math.Max(2*maxY, bodyH)),
	}
}

// clean rounds away float noise below a nanometre so repeated runs compare
// equal.
func clean(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0
	}
	return r
}
