// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package circuit

import (
	"fmt"
	"sort"

	"github.com/vk/circuitgo/internal/components"
	"github.com/vk/circuitgo/internal/footprint"
	"github.com/vk/circuitgo/internal/manualedits"
	"github.com/zclconf/go-cty/cty"
)

// Kind tags the variant an Element carries.
type Kind string

const (
	KindBoard     Kind = "board"
	KindComponent Kind = "component"
	KindNet       Kind = "net"
	KindTrace     Kind = "trace"
)

// Point is a 2D position in millimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p minus q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Element is one node of the circuit graph.
type Element struct {
	ID     string
	Name   string // Declared name; empty for anonymous elements.
	Tag    string // Declaration tag, e.g. "resistor".
	Kind   Kind
	Index  int    // Declaration order within the graph.
	Parent string // Owning board ID; empty for boards and nets.
	Source string // Where the element was declared, for messages.

	// Props holds the declared properties with snake_case names.
	Props map[string]cty.Value

	Spec Spec
}

// Spec is the kind-specific payload of an Element: one of *BoardSpec,
// *ComponentSpec, *NetSpec or *TraceSpec.
type Spec interface {
	kind() Kind
}

// BoardSpec describes a board.
type BoardSpec struct {
	Width, Height float64
	AutoSize      bool    // Size follows the content bounding box.
	Center        Point   // Declared center in world coordinates.
	Margin        float64 // Clearance kept around content when auto-sizing.
	Edits         *manualedits.Set
	Implicit      bool // Created for components declared outside any board.
}

// ComponentSpec describes a placed component.
type ComponentSpec struct {
	Definition *components.Definition
	Part       components.Part
	Footprint  footprint.Footprint // Already rotated.
	Rotation   int
	Placement  *Point // Declared offset from the board center, if any.
	Layer      string
}

// NetSpec describes a named net.
type NetSpec struct {
	Implicit bool // Created by a trace reference rather than a declaration.
}

// PortRef is a resolved trace endpoint: either a component pad or a net.
type PortRef struct {
	Raw       string
	Component string // Component element ID.
	Pad       int
	Net       string // Net element ID.
}

// Key is the connectivity graph node for the endpoint.
func (p PortRef) Key() string {
	if p.Net != "" {
		return NetKey(p.Net)
	}
	return PortKey(p.Component, p.Pad)
}

// PortKey names a component pad in the connectivity graph.
func PortKey(componentID string, pad int) string {
	return fmt.Sprintf("%s.%d", componentID, pad)
}

// NetKey names a net in the connectivity graph.
func NetKey(netID string) string {
	return "net." + netID
}

// TraceSpec describes a trace between two endpoints.
type TraceSpec struct {
	From, To PortRef
	Width    float64
}

func (*BoardSpec) kind() Kind     { return KindBoard }
func (*ComponentSpec) kind() Kind { return KindComponent }
func (*NetSpec) kind() Kind       { return KindNet }
func (*TraceSpec) kind() Kind     { return KindTrace }

// Board returns the board payload, or nil.
func (e *Element) Board() *BoardSpec {
	s, _ := e.Spec.(*BoardSpec)
	return s
}

// Component returns the component payload, or nil.
func (e *Element) Component() *ComponentSpec {
	s, _ := e.Spec.(*ComponentSpec)
	return s
}

// Trace returns the trace payload, or nil.
func (e *Element) Trace() *TraceSpec {
	s, _ := e.Spec.(*TraceSpec)
	return s
}

// DisplayName returns the declared name, falling back to the ID.
func (e *Element) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// PropertyNames returns the declared property names in sorted order.
func (e *Element) PropertyNames() []string {
	names := make([]string, 0, len(e.Props))
	for name := range e.Props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
