// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package components

// Passives registers resistors, capacitors and inductors.
type Passives struct{}

// Resistor is a two-terminal resistor.
type Resistor struct {
	Resistance float64 `circuit:"resistance,required,positive"`
	Tolerance  float64 `circuit:"tolerance"`
}

// Capacitor is a two-terminal capacitor.
type Capacitor struct {
	Capacitance      float64 `circuit:"capacitance,required,positive"`
	MaxVoltageRating float64 `circuit:"max_voltage_rating"`
	Polarized        bool    `circuit:"polarized"`
}

// Inductor is a two-terminal inductor.
type Inductor struct {
	Inductance float64 `circuit:"inductance,required,positive"`
}

func (*Resistor) FootprintHint() string  { return "" }
func (*Capacitor) FootprintHint() string { return "" }
func (*Inductor) FootprintHint() string  { return "" }

// Register implements Module.
func (m *Passives) Register(r *Registry) {
	r.Register(&Definition{
		Tag:              "resistor",
		FType:            "simple_resistor",
		DefaultFootprint: "0402",
		NewPart:          func() Part { return new(Resistor) },
	})
	r.Register(&Definition{
		Tag:              "capacitor",
		FType:            "simple_capacitor",
		DefaultFootprint: "0402",
		PinAliases:       map[string]int{"pos": 1, "neg": 2},
		NewPart:          func() Part { return new(Capacitor) },
	})
	r.Register(&Definition{
		Tag:              "inductor",
		FType:            "simple_inductor",
		DefaultFootprint: "0603",
		NewPart:          func() Part { return new(Inductor) },
	})
}
