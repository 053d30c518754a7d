// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/components"
	"github.com/zclconf/go-cty/cty"
)

func str(s string) cty.Value { return cty.StringVal(s) }

func newBuilder() *Builder {
	return New(components.Core())
}

func TestAddElement_BoardWithResistor(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()

	// --- Act ---
	board, err := b.AddElement(ctx, Declaration{Tag: "board", Props: map[string]cty.Value{"width": str("10mm"), "height": str("10mm")}})
	require.NoError(t, err)
	require.NoError(t, b.Enter(board))
	r1, err := b.AddElement(ctx, Declaration{Tag: "resistor", Props: map[string]cty.Value{
		"name":       str("R1"),
		"resistance": str("1k"),
		"footprint":  str("0402"),
	}})
	require.NoError(t, err)
	require.NoError(t, b.Leave())
	graph, err := b.Finish(ctx)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, 2, graph.Len())
	require.Equal(t, "board_1", board.ID)
	require.Equal(t, 10.0, board.Board().Width)
	require.False(t, board.Board().AutoSize)
	require.Equal(t, "R1", r1.ID)
	require.Equal(t, board.ID, r1.Parent)
	require.NotContains(t, r1.Props, "name")
	resistor, ok := r1.Component().Part.(*components.Resistor)
	require.True(t, ok)
	require.Equal(t, 1000.0, resistor.Resistance)
	require.Equal(t, "0402", r1.Component().Footprint.Name)
}

func TestAddElement_MissingResistanceFailsImmediately(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	b := newBuilder()

	// --- Act ---
	_, err := b.AddElement(context.Background(), Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"footprint": str("0402")}})

	// --- Assert ---
	require.Error(t, err)
	require.True(t, circuiterr.Is(err, circuiterr.KindValidation))
	require.Contains(t, err.Error(), "resistance")
}

func TestAddElement_Rejections(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		decl     Declaration
		contains string
	}{
		{
			name:     "unknown tag",
			decl:     Declaration{Tag: "flux_capacitor", Name: "F1"},
			contains: "flux_capacitor",
		},
		{
			name:     "unknown footprint",
			decl:     Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("1k"), "footprint": str("qfn999x")}},
			contains: "footprint",
		},
		{
			name:     "odd rotation",
			decl:     Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("1k"), "pcbRotation": cty.NumberIntVal(45)}},
			contains: "pcb_rotation",
		},
		{
			name:     "board with only width",
			decl:     Declaration{Tag: "board", Props: map[string]cty.Value{"width": str("10mm")}},
			contains: "height",
		},
		{
			name:     "net without name",
			decl:     Declaration{Tag: "net"},
			contains: "name",
		},
		{
			name:     "trace without to",
			decl:     Declaration{Tag: "trace", Props: map[string]cty.Value{"from": str("R1.1")}},
			contains: "to",
		},
		{
			name:     "bad layer",
			decl:     Declaration{Tag: "led", Name: "D1", Props: map[string]cty.Value{"layer": str("inner1")}},
			contains: "layer",
		},
		{
			name:     "malformed length",
			decl:     Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("1k"), "pcbX": str("3 parsecs")}},
			contains: "pcb_x",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := newBuilder().AddElement(context.Background(), tc.decl)

			require.Error(t, err)
			require.True(t, circuiterr.Is(err, circuiterr.KindValidation), err.Error())
			require.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestAddElement_NestedBoardRejected(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()
	outer, err := b.AddElement(ctx, Declaration{Tag: "board", Name: "outer"})
	require.NoError(t, err)
	require.NoError(t, b.Enter(outer))

	// --- Act ---
	_, err = b.AddElement(ctx, Declaration{Tag: "board", Name: "inner"})

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "nested")
}

func TestAddElement_ImplicitRootBoard(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()

	// --- Act ---
	r1, err := b.AddElement(ctx, Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("10k")}})
	require.NoError(t, err)
	c1, err := b.AddElement(ctx, Declaration{Tag: "capacitor", Name: "C1", Props: map[string]cty.Value{"capacitance": str("1uF")}})
	require.NoError(t, err)
	graph, err := b.Finish(ctx)
	require.NoError(t, err)

	// --- Assert ---
	root, ok := graph.Get(RootBoardID)
	require.True(t, ok)
	require.True(t, root.Board().Implicit)
	require.True(t, root.Board().AutoSize)
	require.Equal(t, RootBoardID, r1.Parent)
	require.Equal(t, RootBoardID, c1.Parent)
	require.Len(t, graph.OfKind(circuit.KindBoard), 1)
}

func TestAddElement_DuplicateNamesGetGeneratedIDs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()
	props := map[string]cty.Value{"resistance": str("1k")}

	// --- Act ---
	first, err := b.AddElement(ctx, Declaration{Tag: "resistor", Name: "R1", Props: props})
	require.NoError(t, err)
	second, err := b.AddElement(ctx, Declaration{Tag: "resistor", Name: "R1", Props: props})
	require.NoError(t, err)

	// --- Assert ---
	require.Equal(t, "R1", first.ID)
	require.Equal(t, "resistor_1", second.ID)
	require.Equal(t, "R1", second.Name)
}

func TestFinish_ResolvesTraces(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()
	board, err := b.AddElement(ctx, Declaration{Tag: "board", Props: map[string]cty.Value{"width": str("20mm"), "height": str("20mm")}})
	require.NoError(t, err)
	require.NoError(t, b.Enter(board))
	_, err = b.AddElement(ctx, Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("1k")}})
	require.NoError(t, err)
	_, err = b.AddElement(ctx, Declaration{Tag: "led", Name: "D1"})
	require.NoError(t, err)
	t1, err := b.AddElement(ctx, Declaration{Tag: "trace", Props: map[string]cty.Value{"from": str(".R1 > .pin2"), "to": str("D1.anode")}})
	require.NoError(t, err)
	t2, err := b.AddElement(ctx, Declaration{Tag: "trace", Props: map[string]cty.Value{"from": str("D1.cathode"), "to": str("net.GND")}})
	require.NoError(t, err)
	require.NoError(t, b.Leave())

	// --- Act ---
	graph, err := b.Finish(ctx)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, circuit.PortRef{Raw: ".R1 > .pin2", Component: "R1", Pad: 2}, t1.Trace().From)
	require.Equal(t, circuit.PortRef{Raw: "D1.anode", Component: "D1", Pad: 1}, t1.Trace().To)
	require.Equal(t, "GND", t2.Trace().To.Net)
	gnd, ok := graph.Get("GND")
	require.True(t, ok)
	require.Equal(t, circuit.KindNet, gnd.Kind)
	group, err := graph.Connectivity.Group("net.GND")
	require.NoError(t, err)
	require.Equal(t, []string{"net.GND", "D1.2"}, group)
}

func TestFinish_TraceOutsideBoardJoinsEndpointBoard(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()
	board, err := b.AddElement(ctx, Declaration{Tag: "board", Name: "main", Props: map[string]cty.Value{"width": str("20mm"), "height": str("20mm")}})
	require.NoError(t, err)
	require.NoError(t, b.Enter(board))
	_, err = b.AddElement(ctx, Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("1k")}})
	require.NoError(t, err)
	require.NoError(t, b.Leave())
	trace, err := b.AddElement(ctx, Declaration{Tag: "trace", Props: map[string]cty.Value{"from": str("net.VCC"), "to": str("R1.pin1")}})
	require.NoError(t, err)

	// --- Act ---
	graph, err := b.Finish(ctx)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "main", trace.Parent)
	require.Contains(t, graph.Children("main"), trace)
	_, rootCreated := graph.Get(RootBoardID)
	require.False(t, rootCreated)
	require.Len(t, graph.OfKind(circuit.KindBoard), 1)
}

func TestFinish_NetToNetTraceUsesRootBoard(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()
	trace, err := b.AddElement(ctx, Declaration{Tag: "trace", Props: map[string]cty.Value{"from": str("net.VCC"), "to": str("net.VBUS")}})
	require.NoError(t, err)

	// --- Act ---
	graph, err := b.Finish(ctx)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, RootBoardID, trace.Parent)
	require.Contains(t, graph.Children(RootBoardID), trace)
}

func TestFinish_UnknownPort(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"missing component": "U7.pin1",
		"missing pin":       "R1.pin9",
		"no separator":      "R1",
	}

	for name, ref := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			ctx := context.Background()
			b := newBuilder()
			_, err := b.AddElement(ctx, Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("1k")}})
			require.NoError(t, err)
			_, err = b.AddElement(ctx, Declaration{Tag: "trace", Props: map[string]cty.Value{"from": str("R1.1"), "to": str(ref)}})
			require.NoError(t, err)

			// --- Act ---
			_, err = b.Finish(ctx)

			// --- Assert ---
			require.Error(t, err)
			require.True(t, circuiterr.Is(err, circuiterr.KindValidation))
			require.Contains(t, err.Error(), "to")
		})
	}
}

func TestEnterLeave(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	b := newBuilder()
	r1, err := b.AddElement(ctx, Declaration{Tag: "resistor", Name: "R1", Props: map[string]cty.Value{"resistance": str("1k")}})
	require.NoError(t, err)
	board, err := b.AddElement(ctx, Declaration{Tag: "board", Name: "main"})
	require.NoError(t, err)

	// --- Act & Assert ---
	require.Error(t, b.Enter(r1), "components cannot contain elements")
	require.Error(t, b.Leave(), "leave without enter")
	require.NoError(t, b.Enter(board))
	_, err = b.Finish(ctx)
	require.Error(t, err, "finish with an open board")
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"pcbX":             "pcb_x",
		"pcb_x":            "pcb_x",
		"maxVoltageRating": "max_voltage_rating",
		"manualEdits":      "manual_edits",
		"pcbRotation":      "pcb_rotation",
		"PCBLayer":         "pcb_layer",
		"pin-count":        "pin_count",
		"resistance":       "resistance",
	}
	for in, want := range testCases {
		require.Equal(t, want, NormalizeName(in), in)
	}
}
