// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package components

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/zclconf/go-cty/cty"
)

func TestCore_RegistersBuiltInKinds(t *testing.T) {
	t.Parallel()

	// --- Act ---
	reg := Core()

	// --- Assert ---
	require.Equal(t,
		[]string{"capacitor", "chip", "diode", "inductor", "led", "pinheader", "resistor"},
		reg.Tags())
	def, ok := reg.Lookup("resistor")
	require.True(t, ok)
	require.Equal(t, "simple_resistor", def.FType)
	_, ok = reg.Lookup("transistor")
	require.False(t, ok)
}

type duplicateModule struct{}

func (duplicateModule) Register(r *Registry) {
	r.Register(&Definition{Tag: "resistor", NewPart: func() Part { return new(Resistor) }})
}

func TestCore_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { Core(duplicateModule{}) })
}

func TestDecode_Resistor(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	props := map[string]cty.Value{
		"resistance": cty.StringVal("1k"),
		"footprint":  cty.StringVal("0402"),
	}
	part := new(Resistor)

	// --- Act ---
	err := Decode("resistor", "R1", props, part)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, 1000.0, part.Resistance)
	require.Equal(t, 0.0, part.Tolerance)
}

func TestDecode_MissingRequiredProperty(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		tag      string
		part     Part
		property string
	}{
		{tag: "resistor", part: new(Resistor), property: "resistance"},
		{tag: "capacitor", part: new(Capacitor), property: "capacitance"},
		{tag: "inductor", part: new(Inductor), property: "inductance"},
		{tag: "pinheader", part: new(PinHeader), property: "pin_count"},
	}

	for _, tc := range testCases {
		t.Run(tc.tag, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			err := Decode(tc.tag, "X1", map[string]cty.Value{"footprint": cty.StringVal("0402")}, tc.part)

			// --- Assert ---
			require.Error(t, err)
			require.True(t, circuiterr.Is(err, circuiterr.KindValidation))
			require.Contains(t, err.Error(), tc.property)
		})
	}
}

func TestDecode_NullCountsAsMissing(t *testing.T) {
	t.Parallel()

	err := Decode("resistor", "R1", map[string]cty.Value{"resistance": cty.NullVal(cty.String)}, new(Resistor))

	require.Error(t, err)
	require.Contains(t, err.Error(), "resistance")
}

func TestDecode_InvalidValue(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := Decode("pinheader", "J1", map[string]cty.Value{"pin_count": cty.StringVal("four")}, new(PinHeader))

	// --- Assert ---
	require.Error(t, err)
	var cerr *circuiterr.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "pin_count", cerr.Property)
	require.Equal(t, "J1", cerr.Element)
}

func TestDecode_NonPositivePassiveValue(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		tag      string
		part     Part
		property string
		value    cty.Value
	}{
		{tag: "resistor", part: new(Resistor), property: "resistance", value: cty.StringVal("0")},
		{tag: "resistor", part: new(Resistor), property: "resistance", value: cty.StringVal("-1k")},
		{tag: "capacitor", part: new(Capacitor), property: "capacitance", value: cty.NumberIntVal(0)},
		{tag: "inductor", part: new(Inductor), property: "inductance", value: cty.StringVal("-10u")},
	}

	for _, tc := range testCases {
		t.Run(tc.tag+"/"+tc.value.GoString(), func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			err := Decode(tc.tag, "X1", map[string]cty.Value{tc.property: tc.value}, tc.part)

			// --- Assert ---
			require.Error(t, err)
			require.True(t, circuiterr.Is(err, circuiterr.KindValidation), err.Error())
			var cerr *circuiterr.Error
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, tc.property, cerr.Property)
			require.Contains(t, err.Error(), "greater than zero")
		})
	}
}

func TestDecode_TypedFields(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	header := new(PinHeader)
	capacitor := new(Capacitor)

	// --- Act ---
	errHeader := Decode("pinheader", "J1", map[string]cty.Value{
		"pin_count": cty.NumberIntVal(4),
		"pitch":     cty.StringVal("100mil"),
		"gender":    cty.StringVal("male"),
	}, header)
	errCap := Decode("capacitor", "C1", map[string]cty.Value{
		"capacitance": cty.StringVal("100nF"),
		"polarized":   cty.True,
	}, capacitor)

	// --- Assert ---
	require.NoError(t, errHeader)
	require.NoError(t, errCap)
	require.Equal(t, 4, header.PinCount)
	require.InDelta(t, 2.54, header.Pitch, 1e-9)
	require.Equal(t, "male", header.Gender)
	require.Equal(t, "pinrow4", header.FootprintHint())
	require.InDelta(t, 100e-9, capacitor.Capacitance, 1e-18)
	require.True(t, capacitor.Polarized)
}

func TestChip_FootprintHint(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", (&Chip{}).FootprintHint())
	require.Equal(t, "soic4", (&Chip{PinCount: 3}).FootprintHint())
	require.Equal(t, "soic14", (&Chip{PinCount: 13}).FootprintHint())
}
