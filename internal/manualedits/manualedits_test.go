// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package manualedits

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

const sampleEdits = `{
  "pcb_placements": [
    {"selector": "R1", "center": {"x": 5, "y": 5}, "relative_to": "group_center"}
  ],
  "edit_events": [
    {"edit_event_id": "e1", "edit_event_type": "edit_pcb_component_location", "pcb_component_id": "C1", "original_center": {"x": 0, "y": 0}, "new_center": {"x": 1, "y": 2}, "in_progress": false},
    {"edit_event_id": "e2", "edit_event_type": "edit_trace_hint", "in_progress": false}
  ],
  "manual_trace_hints": [
    {"pcb_port_selector": ".R1 > .pin1", "offsets": [{"x": 1, "y": 1}]}
  ]
}`

func TestParse_AllSections(t *testing.T) {
	t.Parallel()

	// --- Act ---
	set, err := Parse([]byte(sampleEdits))

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []Placement{{Selector: "R1", Center: Point{X: 5, Y: 5}, RelativeTo: RelativeToGroupCenter}}, set.Placements)
	require.Len(t, set.Events, 2)
	require.True(t, set.Events[0].Replayable())
	require.Equal(t, Point{X: 1, Y: 2}, set.Events[0].NewCenter)
	require.False(t, set.Events[1].Replayable())
	require.Len(t, set.TraceHints, 1)
	require.Equal(t, []Point{{X: 1, Y: 1}}, set.TraceHints[0].Offsets)
	require.False(t, set.IsEmpty())
}

func TestParse_DefaultsRelativeTo(t *testing.T) {
	t.Parallel()

	set, err := Parse([]byte(`{"pcb_placements":[{"selector":"R1","center":{"x":1,"y":1}}]}`))

	require.NoError(t, err)
	require.Equal(t, RelativeToGroupCenter, set.Placements[0].RelativeTo)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		property string
	}{
		{name: "bad json", input: `{"pcb_placements": [`},
		{name: "unknown relative_to", input: `{"pcb_placements":[{"selector":"R1","center":{"x":1,"y":1},"relative_to":"board_corner"}]}`, property: "relative_to"},
		{name: "empty selector", input: `{"pcb_placements":[{"selector":"","center":{"x":1,"y":1}}]}`, property: "selector"},
		{name: "malformed event", input: `{"edit_events":[42]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.input))

			require.Error(t, err)
			require.True(t, circuiterr.Is(err, circuiterr.KindValidation))
			if tc.property != "" {
				require.Contains(t, err.Error(), tc.property)
			}
		})
	}
}

func TestExport_RoundTripsUnmodified(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	set, err := Parse([]byte(sampleEdits))
	require.NoError(t, err)

	// --- Act ---
	out, err := set.Export()

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, sampleEdits, string(out))
}

func TestRecordPlacement_MarksDirty(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	set, err := Parse([]byte(sampleEdits))
	require.NoError(t, err)

	// --- Act ---
	set.RecordPlacement(Placement{Selector: "R1", Center: Point{X: 5, Y: 5}})
	unchanged, err := set.Export()
	require.NoError(t, err)

	set.RecordPlacement(Placement{Selector: "C1", Center: Point{X: -2, Y: 3}, RelativeTo: RelativeToAbsolute})
	changed, err := set.Export()
	require.NoError(t, err)

	// --- Assert ---
	require.Equal(t, sampleEdits, string(unchanged), "re-recording an identical placement must not rewrite the file")
	reparsed, err := Parse(changed)
	require.NoError(t, err)
	require.Len(t, reparsed.Placements, 2)
	require.Equal(t, "C1", reparsed.Placements[1].Selector)
	require.Len(t, reparsed.Events, 2, "events must survive re-serialization")
	var first map[string]any
	require.NoError(t, json.Unmarshal(reparsed.Events[0].Raw, &first))
	require.Equal(t, "e1", first["edit_event_id"])
}

func TestExport_EmptySet(t *testing.T) {
	t.Parallel()

	out, err := Empty().Export()

	require.NoError(t, err)
	require.JSONEq(t, `{"pcb_placements":[],"edit_events":[],"manual_trace_hints":[]}`, string(out))
	require.True(t, Empty().IsEmpty())
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := []byte(`{"pcb_placements":[{"selector":"R1","center":{"x":5,"y":5},"relative_to":"group_center"}],"edit_events":[],"manual_trace_hints":[]}`)
	ty, err := ctyjson.ImpliedType(src)
	require.NoError(t, err)
	val, err := ctyjson.Unmarshal(src, ty)
	require.NoError(t, err)

	// --- Act ---
	set, err := FromValue(val)
	empty, errNull := FromValue(cty.NullVal(cty.DynamicPseudoType))

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "R1", set.Placements[0].Selector)
	require.Equal(t, Point{X: 5, Y: 5}, set.Placements[0].Center)
	require.NoError(t, errNull)
	require.True(t, empty.IsEmpty())
}
