// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package components

import "strconv"

// Connectors registers pin headers.
type Connectors struct{}

// PinHeader is a single row of through-hole pins.
type PinHeader struct {
	PinCount int     `circuit:"pin_count,required"`
	Pitch    float64 `circuit:"pitch,length"`
	Gender   string  `circuit:"gender"`
}

// FootprintHint derives the row footprint from the pin count.
func (p *PinHeader) FootprintHint() string {
	return "pinrow" + itoa(p.PinCount)
}

// Register implements Module.
func (m *Connectors) Register(r *Registry) {
	r.Register(&Definition{
		Tag:     "pinheader",
		FType:   "simple_pin_header",
		NewPart: func() Part { return new(PinHeader) },
	})
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
