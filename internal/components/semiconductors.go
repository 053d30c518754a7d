// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package components

// Semiconductors registers diodes, LEDs and generic chips.
type Semiconductors struct{}

// Diode is a two-terminal diode; pin 1 is the anode.
type Diode struct{}

// LED is a light emitting diode; pin 1 is the anode.
type LED struct {
	Color      string  `circuit:"color"`
	Wavelength float64 `circuit:"wavelength,length"`
}

// Chip is a generic multi-pin integrated circuit.
type Chip struct {
	ManufacturerPartNumber string `circuit:"manufacturer_part_number"`
	PinCount               int    `circuit:"pin_count"`
}

func (*Diode) FootprintHint() string { return "" }
func (*LED) FootprintHint() string   { return "" }

// FootprintHint picks a SOIC package wide enough for the declared pin count.
func (c *Chip) FootprintHint() string {
	if c.PinCount <= 0 {
		return ""
	}
	n := max(c.PinCount, 4)
	if n%2 != 0 {
		n++
	}
	return "soic" + itoa(n)
}

var diodeAliases = map[string]int{"anode": 1, "cathode": 2, "pos": 1, "neg": 2}

// Register implements Module.
func (m *Semiconductors) Register(r *Registry) {
	r.Register(&Definition{
		Tag:              "diode",
		FType:            "simple_diode",
		DefaultFootprint: "0603",
		PinAliases:       diodeAliases,
		NewPart:          func() Part { return new(Diode) },
	})
	r.Register(&Definition{
		Tag:              "led",
		FType:            "simple_led",
		DefaultFootprint: "0603",
		PinAliases:       diodeAliases,
		NewPart:          func() Part { return new(LED) },
	})
	r.Register(&Definition{
		Tag:              "chip",
		FType:            "simple_chip",
		DefaultFootprint: "soic8",
		NewPart:          func() Part { return new(Chip) },
	})
}
