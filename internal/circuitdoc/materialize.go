// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package circuitdoc

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/layout"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Materialize snapshots a settled graph. Every graph element yields exactly
// one primary record, in declaration order; pads and ports of each component
// follow as derived records.
func Materialize(s *layout.Settled) (Document, error) {
	if s == nil || s.Graph == nil || s.State == nil {
		return Document{}, fmt.Errorf("materialize: graph has not been settled")
	}

	var primary, derived []Record
	for _, el := range s.Graph.Elements() {
		rec := Record{ID: el.ID, Name: el.DisplayName()}
		props, err := properties(el)
		if err != nil {
			return Document{}, err
		}
		rec.Properties = props

		if el.Kind == circuit.KindNet {
			rec.Type = TypeNet
			rec.ConnectedPorts = netPorts(s.Graph, el.ID)
			primary = append(primary, rec)
			continue
		}

		g, ok := s.State.Geometry(el.ID)
		if !ok {
			return Document{}, fmt.Errorf("materialize: %s %q has no settled geometry", el.Kind, el.ID)
		}
		switch el.Kind {
		case circuit.KindBoard:
			rec.Type = TypeBoard
			rec.Center = point(g.Center)
			rec.Width, rec.Height = g.Width, g.Height
			rec.Autosized = el.Board().AutoSize
		case circuit.KindComponent:
			spec := el.Component()
			rec.Type = TypeComponent
			rec.PcbBoardID = el.Parent
			rec.Ftype = spec.Definition.FType
			rec.Footprint = spec.Footprint.Name
			rec.Center = point(g.Center)
			rec.Width, rec.Height = g.Width, g.Height
			rec.Rotation = g.Rotation
			rec.Layer = g.Layer
			rec.ManuallyPlaced = g.Edited
			derived = append(derived, padRecords(el, g)...)
		case circuit.KindTrace:
			spec := el.Trace()
			rec.Type = TypeTrace
			rec.PcbBoardID = el.Parent
			rec.ConnectedPorts = []string{spec.From.Key(), spec.To.Key()}
			rec.Route = g.Route
			rec.TraceWidth = spec.Width
		default:
			return Document{}, fmt.Errorf("materialize: unexpected element kind %q", el.Kind)
		}
		primary = append(primary, rec)
	}
	return Document{Records: append(primary, derived...)}, nil
}

func padRecords(el *circuit.Element, g *layout.Geometry) []Record {
	var out []Record
	for _, p := range g.Pads {
		typ := TypeSMTPad
		if p.Plated {
			typ = TypePlatedHole
		}
		pad := Record{
			Type:           typ,
			ID:             fmt.Sprintf("%s_pad%d", el.ID, p.Number),
			PcbComponentID: el.ID,
			Center:         point(p.Center),
			Width:          p.Width,
			Height:         p.Height,
			Shape:          p.Shape,
			Layer:          g.Layer,
		}
		port := Record{
			Type:           TypePort,
			ID:             p.PortKey,
			PcbComponentID: el.ID,
			Center:         point(p.Center),
			Layer:          g.Layer,
			PortHints:      portHints(el, p.Number),
		}
		out = append(out, pad, port)
	}
	return out
}

// portHints lists the names a pad can be referred to by: its number, "pinN"
// and any footprint or component alias.
func portHints(el *circuit.Element, number int) []string {
	spec := el.Component()
	hints := []string{fmt.Sprint(number), fmt.Sprintf("pin%d", number)}
	for _, p := range spec.Footprint.Pads {
		if p.Number == number {
			hints = append(hints, p.Names...)
		}
	}
	return append(hints, sortedAliases(spec.Definition.PinAliases, number)...)
}

func sortedAliases(aliases map[string]int, number int) []string {
	var out []string
	for name, n := range aliases {
		if n == number {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// netPorts lists the component ports connected to a net.
func netPorts(graph *circuit.Graph, netID string) []string {
	group, err := graph.Connectivity.Group(circuit.NetKey(netID))
	if err != nil {
		return nil
	}
	nets := make(map[string]bool)
	for _, el := range graph.OfKind(circuit.KindNet) {
		nets[circuit.NetKey(el.ID)] = true
	}
	var out []string
	for _, key := range group {
		if !nets[key] {
			out = append(out, key)
		}
	}
	return out
}

func properties(el *circuit.Element) (map[string]json.RawMessage, error) {
	if len(el.Props) == 0 {
		return nil, nil
	}
	out := make(map[string]json.RawMessage, len(el.Props))
	for _, name := range el.PropertyNames() {
		v := el.Props[name]
		if !v.IsWhollyKnown() {
			continue
		}
		data, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return nil, fmt.Errorf("materialize: property %q of %q: %w", name, el.ID, err)
		}
		out[name] = data
	}
	return out, nil
}

func point(p circuit.Point) *circuit.Point {
	return &p
}
