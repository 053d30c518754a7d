// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/components"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/footprint"
	"github.com/vk/circuitgo/internal/manualedits"
	"github.com/vk/circuitgo/internal/units"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

const (
	defaultBoardMargin = 1.0
	defaultTraceWidth  = 0.15
)

func (b *Builder) addBoard(el *circuit.Element) error {
	if len(b.open) > 0 {
		return circuiterr.New(circuiterr.KindValidation, "board %q cannot be nested inside board %q", el.Name, b.open[len(b.open)-1].DisplayName())
	}
	el.Kind = circuit.KindBoard
	spec := &circuit.BoardSpec{Margin: defaultBoardMargin}

	width, hasWidth, err := lengthProp(el, "width")
	if err != nil {
		return err
	}
	height, hasHeight, err := lengthProp(el, "height")
	if err != nil {
		return err
	}
	switch {
	case !hasWidth && !hasHeight:
		spec.AutoSize = true
	case !hasWidth:
		return circuiterr.MissingProperty("board", el.Name, "width")
	case !hasHeight:
		return circuiterr.MissingProperty("board", el.Name, "height")
	case width <= 0 || height <= 0:
		return circuiterr.InvalidProperty("board", el.Name, "width", fmt.Errorf("board size must be positive, got %gx%g", width, height))
	default:
		spec.Width, spec.Height = width, height
	}

	if spec.Center.X, _, err = lengthProp(el, "center_x"); err != nil {
		return err
	}
	if spec.Center.Y, _, err = lengthProp(el, "center_y"); err != nil {
		return err
	}
	if margin, ok, err := lengthProp(el, "margin"); err != nil {
		return err
	} else if ok {
		spec.Margin = margin
	}

	if v, ok := el.Props["manual_edits"]; ok {
		edits, err := manualedits.FromValue(v)
		if err != nil {
			return circuiterr.InvalidProperty("board", el.Name, "manual_edits", err)
		}
		spec.Edits = edits
	}

	el.Spec = spec
	return nil
}

func (b *Builder) addNet(el *circuit.Element) error {
	if el.Name == "" {
		return circuiterr.MissingProperty("net", el.Name, "name")
	}
	el.Kind = circuit.KindNet
	el.Spec = &circuit.NetSpec{}
	return nil
}

func (b *Builder) addTrace(el *circuit.Element) error {
	el.Kind = circuit.KindTrace
	spec := &circuit.TraceSpec{Width: defaultTraceWidth}
	for _, end := range []struct {
		prop string
		ref  *circuit.PortRef
	}{{"from", &spec.From}, {"to", &spec.To}} {
		v, ok := el.Props[end.prop]
		if !ok || v.IsNull() {
			return circuiterr.MissingProperty("trace", el.Name, end.prop)
		}
		raw, err := stringProp("trace", el.Name, end.prop, v)
		if err != nil {
			return err
		}
		end.ref.Raw = raw
	}
	if width, ok, err := lengthProp(el, "width"); err != nil {
		return err
	} else if ok {
		spec.Width = width
	}

	// A trace outside any board is owned by its endpoints' board once
	// Finish has resolved them.
	if len(b.open) > 0 {
		el.Parent = b.open[len(b.open)-1].ID
	}
	el.Spec = spec
	return nil
}

// adoptTrace parents a board-less trace to the board of the component at
// its from end, else its to end. Net-to-net traces fall back to the root
// board.
func (b *Builder) adoptTrace(el *circuit.Element) error {
	if el.Parent != "" {
		return nil
	}
	spec := el.Trace()
	for _, end := range []circuit.PortRef{spec.From, spec.To} {
		if end.Component == "" {
			continue
		}
		if comp, ok := b.graph.Get(end.Component); ok {
			return b.graph.Adopt(el.ID, comp.Parent)
		}
	}
	root, err := b.current()
	if err != nil {
		return err
	}
	return b.graph.Adopt(el.ID, root.ID)
}

func (b *Builder) addComponent(el *circuit.Element) error {
	def, ok := b.registry.Lookup(el.Tag)
	if !ok {
		return circuiterr.New(circuiterr.KindValidation, "unknown element <%s> (known kinds: board, net, trace, %s)", el.Tag, strings.Join(b.registry.Tags(), ", "))
	}
	el.Kind = circuit.KindComponent

	part := def.NewPart()
	if err := components.Decode(el.Tag, el.Name, el.Props, part); err != nil {
		return err
	}

	fpName := part.FootprintHint()
	if v, ok := el.Props["footprint"]; ok && !v.IsNull() {
		name, err := stringProp(el.Tag, el.Name, "footprint", v)
		if err != nil {
			return err
		}
		fpName = name
	}
	if fpName == "" {
		fpName = def.DefaultFootprint
	}
	if fpName == "" {
		return circuiterr.MissingProperty(el.Tag, el.Name, "footprint")
	}
	fp, err := footprint.Lookup(fpName)
	if err != nil {
		return circuiterr.InvalidProperty(el.Tag, el.Name, "footprint", err)
	}

	rotation, err := intProp(el, "pcb_rotation")
	if err != nil {
		return err
	}
	if fp, err = fp.Rotated(rotation); err != nil {
		return circuiterr.InvalidProperty(el.Tag, el.Name, "pcb_rotation", err)
	}

	spec := &circuit.ComponentSpec{
		Definition: def,
		Part:       part,
		Footprint:  fp,
		Rotation:   rotation,
		Layer:      "top",
	}
	x, hasX, err := lengthProp(el, "pcb_x")
	if err != nil {
		return err
	}
	y, hasY, err := lengthProp(el, "pcb_y")
	if err != nil {
		return err
	}
	if hasX || hasY {
		spec.Placement = &circuit.Point{X: x, Y: y}
	}
	if v, ok := el.Props["layer"]; ok {
		layer, err := stringProp(el.Tag, el.Name, "layer", v)
		if err != nil {
			return err
		}
		if layer != "top" && layer != "bottom" {
			return circuiterr.InvalidProperty(el.Tag, el.Name, "layer", fmt.Errorf("layer must be \"top\" or \"bottom\", got %q", layer))
		}
		spec.Layer = layer
	}

	parent, err := b.current()
	if err != nil {
		return err
	}
	el.Parent = parent.ID
	el.Spec = spec
	return nil
}

// resolvePort interprets a trace endpoint such as "R1.pin1", "R1.anode",
// ".R1 > .pin1" or "net.GND". Nets referenced but never declared are created.
func (b *Builder) resolvePort(ctx context.Context, trace *circuit.Element, prop, raw string) (circuit.PortRef, error) {
	normalized := strings.NewReplacer(" ", "", ">", ".").Replace(raw)
	normalized = strings.TrimPrefix(normalized, ".")
	normalized = strings.ReplaceAll(normalized, "..", ".")
	target, pin, ok := strings.Cut(normalized, ".")
	if !ok || target == "" || pin == "" {
		return circuit.PortRef{}, invalidPort(trace, prop, raw, "expected <component>.<pin> or net.<name>")
	}

	if target == "net" {
		net := b.findNet(pin)
		if net == nil {
			net = &circuit.Element{
				ID:    b.assignID("net", pin),
				Name:  pin,
				Tag:   "net",
				Kind:  circuit.KindNet,
				Props: map[string]cty.Value{},
				Spec:  &circuit.NetSpec{Implicit: true},
			}
			if err := b.graph.Add(net); err != nil {
				return circuit.PortRef{}, err
			}
			b.graph.Connectivity.AddNode(circuit.NetKey(net.ID))
			ctxlog.FromContext(ctx).Debug("Net created from trace reference.", "net", pin, "trace", trace.DisplayName())
		}
		return circuit.PortRef{Raw: raw, Net: net.ID}, nil
	}

	comp := b.findComponent(target)
	if comp == nil {
		return circuit.PortRef{}, invalidPort(trace, prop, raw, fmt.Sprintf("no component named %q", target))
	}
	spec := comp.Component()
	pad, found := spec.Footprint.Pad(pin)
	if !found {
		if n, alias := spec.Definition.PinAliases[strings.ToLower(pin)]; alias {
			pad, found = spec.Footprint.Pad(fmt.Sprint(n))
		}
	}
	if !found {
		return circuit.PortRef{}, invalidPort(trace, prop, raw, fmt.Sprintf("%s %q has no pin %q", comp.Tag, comp.DisplayName(), pin))
	}
	return circuit.PortRef{Raw: raw, Component: comp.ID, Pad: pad.Number}, nil
}

func (b *Builder) findComponent(name string) *circuit.Element {
	for _, el := range b.graph.OfKind(circuit.KindComponent) {
		if el.Name == name || el.ID == name {
			return el
		}
	}
	return nil
}

func (b *Builder) findNet(name string) *circuit.Element {
	for _, el := range b.graph.OfKind(circuit.KindNet) {
		if el.Name == name {
			return el
		}
	}
	return nil
}

func invalidPort(trace *circuit.Element, prop, raw, reason string) error {
	return circuiterr.InvalidProperty("trace", trace.DisplayName(), prop, fmt.Errorf("%q: %s", raw, reason))
}

func lengthProp(el *circuit.Element, prop string) (float64, bool, error) {
	v, ok := el.Props[prop]
	if !ok || v.IsNull() {
		return 0, false, nil
	}
	f, err := units.Length(v)
	if err != nil {
		return 0, false, circuiterr.InvalidProperty(el.Tag, el.Name, prop, err)
	}
	return f, true, nil
}

func intProp(el *circuit.Element, prop string) (int, error) {
	v, ok := el.Props[prop]
	if !ok || v.IsNull() {
		return 0, nil
	}
	if !v.IsWhollyKnown() {
		return 0, circuiterr.InvalidProperty(el.Tag, el.Name, prop, fmt.Errorf("value is not known"))
	}
	if v.Type() == cty.String {
		v = cty.StringVal(strings.TrimSuffix(strings.TrimSpace(v.AsString()), "deg"))
	}
	num, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, circuiterr.InvalidProperty(el.Tag, el.Name, prop, err)
	}
	var out int
	if err := gocty.FromCtyValue(num, &out); err != nil {
		return 0, circuiterr.InvalidProperty(el.Tag, el.Name, prop, err)
	}
	return out, nil
}

func stringProp(tag, name, prop string, v cty.Value) (string, error) {
	if !v.IsWhollyKnown() || v.IsNull() {
		return "", circuiterr.InvalidProperty(tag, name, prop, fmt.Errorf("value is not known"))
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", circuiterr.InvalidProperty(tag, name, prop, err)
	}
	return s.AsString(), nil
}
