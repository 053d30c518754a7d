// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package manualedits reads and writes the persisted manual-edits file: the
// placements, edit events and trace hints an author made by hand on top of
// the automatic layout.
package manualedits

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

const (
	// RelativeToGroupCenter positions an element relative to the center of its
	// sibling group in the automatic layout.
	RelativeToGroupCenter = "group_center"
	// RelativeToAbsolute positions an element in board coordinates.
	RelativeToAbsolute = "absolute"

	// EventEditComponentLocation is the only edit event type that is replayed.
	EventEditComponentLocation = "edit_pcb_component_location"
)

// Point is a 2D position in millimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placement pins the elements matched by Selector to Center.
type Placement struct {
	Selector   string `json:"selector"`
	Center     Point  `json:"center"`
	RelativeTo string `json:"relative_to"`
}

// TraceHint inserts waypoints into the traces leaving the selected port.
type TraceHint struct {
	PcbPortSelector string  `json:"pcb_port_selector"`
	Offsets         []Point `json:"offsets"`
	TraceWidth      float64 `json:"trace_width,omitempty"`
}

// Event is a recorded interactive edit. Only component moves are understood;
// every event keeps its raw form so the file round-trips unchanged.
type Event struct {
	Type           string
	PcbComponentID string
	OriginalCenter Point
	NewCenter      Point
	InProgress     bool
	Raw            json.RawMessage
}

// Replayable reports whether the event moves a component and is final.
func (e Event) Replayable() bool {
	return e.Type == EventEditComponentLocation && !e.InProgress && e.PcbComponentID != ""
}

type fileFormat struct {
	PcbPlacements    []Placement       `json:"pcb_placements"`
	EditEvents       []json.RawMessage `json:"edit_events"`
	ManualTraceHints []TraceHint       `json:"manual_trace_hints"`
}

type eventFields struct {
	EditEventType  string `json:"edit_event_type"`
	PcbComponentID string `json:"pcb_component_id"`
	OriginalCenter Point  `json:"original_center"`
	NewCenter      Point  `json:"new_center"`
	InProgress     bool   `json:"in_progress"`
}

// Set is a parsed manual-edits file. A Set is not modified during a run;
// RecordPlacement is meant for tooling that edits the file between runs.
type Set struct {
	Placements []Placement
	Events     []Event
	TraceHints []TraceHint

	raw   []byte
	dirty bool
}

// Empty returns a set with no edits.
func Empty() *Set {
	return &Set{}
}

// Parse decodes and validates a manual-edits document.
func Parse(data []byte) (*Set, error) {
	var f fileFormat
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return nil, circuiterr.Wrap(circuiterr.KindValidation, err, "manual edits are not valid JSON")
	}

	s := &Set{
		Placements: f.PcbPlacements,
		TraceHints: f.ManualTraceHints,
		raw:        append([]byte(nil), data...),
	}
	for i, p := range s.Placements {
		switch p.RelativeTo {
		case "":
			s.Placements[i].RelativeTo = RelativeToGroupCenter
		case RelativeToGroupCenter, RelativeToAbsolute:
		default:
			return nil, &circuiterr.Error{
				Kind:     circuiterr.KindValidation,
				Message:  fmt.Sprintf("placement %d for %q has unsupported relative_to %q", i, p.Selector, p.RelativeTo),
				Element:  p.Selector,
				Property: "relative_to",
			}
		}
		if p.Selector == "" {
			return nil, &circuiterr.Error{
				Kind:     circuiterr.KindValidation,
				Message:  fmt.Sprintf("placement %d has an empty selector", i),
				Property: "selector",
			}
		}
	}
	for i, raw := range f.EditEvents {
		var ef eventFields
		if err := json.Unmarshal(raw, &ef); err != nil {
			return nil, circuiterr.Wrap(circuiterr.KindValidation, err, "edit event %d is malformed", i)
		}
		s.Events = append(s.Events, Event{
			Type:           ef.EditEventType,
			PcbComponentID: ef.PcbComponentID,
			OriginalCenter: ef.OriginalCenter,
			NewCenter:      ef.NewCenter,
			InProgress:     ef.InProgress,
			Raw:            raw,
		})
	}
	return s, nil
}

// FromValue converts an evaluated property value (an imported JSON document
// or an inline object) into a Set. A null value yields an empty set.
func FromValue(v cty.Value) (*Set, error) {
	if v.IsNull() {
		return Empty(), nil
	}
	if !v.IsWhollyKnown() {
		return nil, circuiterr.New(circuiterr.KindValidation, "manual edits value is not known")
	}
	data, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, circuiterr.Wrap(circuiterr.KindValidation, err, "manual edits cannot be encoded")
	}
	return Parse(data)
}

// IsEmpty reports whether the set carries no placements, events or hints.
func (s *Set) IsEmpty() bool {
	return s == nil || (len(s.Placements) == 0 && len(s.Events) == 0 && len(s.TraceHints) == 0)
}

// RecordPlacement adds or replaces the placement for a selector.
func (s *Set) RecordPlacement(p Placement) {
	if p.RelativeTo == "" {
		p.RelativeTo = RelativeToGroupCenter
	}
	for i, existing := range s.Placements {
		if existing.Selector == p.Selector {
			if existing == p {
				return
			}
			s.Placements[i] = p
			s.dirty = true
			return
		}
	}
	s.Placements = append(s.Placements, p)
	s.dirty = true
}

// Export serializes the set. An unmodified parsed set returns its original
// bytes so that persisted files round-trip unchanged.
func (s *Set) Export() ([]byte, error) {
	if !s.dirty && s.raw != nil {
		return append([]byte(nil), s.raw...), nil
	}
	f := fileFormat{
		PcbPlacements:    s.Placements,
		EditEvents:       make([]json.RawMessage, 0, len(s.Events)),
		ManualTraceHints: s.TraceHints,
	}
	if f.PcbPlacements == nil {
		f.PcbPlacements = []Placement{}
	}
	if f.ManualTraceHints == nil {
		f.ManualTraceHints = []TraceHint{}
	}
	for _, e := range s.Events {
		f.EditEvents = append(f.EditEvents, e.Raw)
	}
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manual edits: %w", err)
	}
	return append(out, '\n'), nil
}
