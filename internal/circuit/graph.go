// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package circuit

import (
	"fmt"

	"github.com/vk/circuitgo/internal/netgraph"
)

// Graph is the validated circuit produced by the builder. Elements are kept
// in declaration order, which is also the tie-breaking order everywhere the
// layout has a choice to make.
type Graph struct {
	elements []*Element
	byID     map[string]*Element
	children map[string][]*Element

	// Connectivity joins component ports and nets through traces.
	Connectivity *netgraph.Graph
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		byID:         make(map[string]*Element),
		children:     make(map[string][]*Element),
		Connectivity: netgraph.New(),
	}
}

// Add appends an element. Its Index is assigned from the insertion order.
func (g *Graph) Add(e *Element) error {
	if _, exists := g.byID[e.ID]; exists {
		return fmt.Errorf("duplicate element ID %q", e.ID)
	}
	if e.Parent != "" {
		if _, ok := g.byID[e.Parent]; !ok {
			return fmt.Errorf("element %q refers to unknown parent %q", e.ID, e.Parent)
		}
	}
	e.Index = len(g.elements)
	g.elements = append(g.elements, e)
	g.byID[e.ID] = e
	if e.Parent != "" {
		g.children[e.Parent] = append(g.children[e.Parent], e)
	}
	return nil
}

// Adopt gives a parentless element its owning board. Children stay in
// declaration order.
func (g *Graph) Adopt(id, parent string) error {
	e, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("unknown element %q", id)
	}
	if e.Parent != "" {
		return fmt.Errorf("element %q already belongs to %q", id, e.Parent)
	}
	if _, ok := g.byID[parent]; !ok {
		return fmt.Errorf("element %q refers to unknown parent %q", id, parent)
	}
	e.Parent = parent
	siblings := g.children[parent]
	at := len(siblings)
	for at > 0 && siblings[at-1].Index > e.Index {
		at--
	}
	siblings = append(siblings, nil)
	copy(siblings[at+1:], siblings[at:])
	siblings[at] = e
	g.children[parent] = siblings
	return nil
}

// Elements returns every element in declaration order.
func (g *Graph) Elements() []*Element {
	return g.elements
}

// Get returns the element with the given ID.
func (g *Graph) Get(id string) (*Element, bool) {
	e, ok := g.byID[id]
	return e, ok
}

// Children returns the elements owned by the given board.
func (g *Graph) Children(id string) []*Element {
	return g.children[id]
}

// OfKind returns the elements of one kind in declaration order.
func (g *Graph) OfKind(kind Kind) []*Element {
	var out []*Element
	for _, e := range g.elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of elements.
func (g *Graph) Len() int {
	return len(g.elements)
}
