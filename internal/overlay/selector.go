// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package overlay

import (
	"path"
	"strings"

	"github.com/vk/circuitgo/internal/circuit"
)

// Index resolves selectors to components. It is built once per graph.
type Index struct {
	byName     map[string][]*circuit.Element
	components []*circuit.Element
}

// NewIndex indexes every component of the graph by name and ID.
func NewIndex(graph *circuit.Graph) *Index {
	ix := &Index{byName: make(map[string][]*circuit.Element)}
	for _, el := range graph.OfKind(circuit.KindComponent) {
		ix.components = append(ix.components, el)
		ix.byName[el.ID] = append(ix.byName[el.ID], el)
		if el.Name != "" && el.Name != el.ID {
			ix.byName[el.Name] = append(ix.byName[el.Name], el)
		}
	}
	return ix
}

// Selector is a parsed placement selector.
type Selector struct {
	Raw     string
	Pattern string
	Glob    bool
}

// ParseSelector normalizes ".R1", "R1", ".group > .R1" and glob patterns such
// as "R*". Only the last path segment selects the component.
func ParseSelector(raw string) Selector {
	last := raw
	if i := strings.LastIndex(last, ">"); i >= 0 {
		last = last[i+1:]
	}
	last = strings.TrimPrefix(strings.TrimSpace(last), ".")
	return Selector{
		Raw:     raw,
		Pattern: last,
		Glob:    strings.ContainsAny(last, "*?["),
	}
}

// Match returns the components a selector designates within scope (a board
// ID, or "" for the whole graph), in declaration order. A declared name or ID
// always matches itself, even when it contains glob characters; the pattern
// is only used as a glob when nothing carries it verbatim.
func (ix *Index) Match(sel Selector, scope string) []*circuit.Element {
	out := ix.exact(sel.Pattern, scope)
	if len(out) > 0 || !sel.Glob {
		return out
	}
	for _, el := range ix.components {
		if !inScope(el, scope) {
			continue
		}
		if ok, _ := path.Match(sel.Pattern, el.Name); ok {
			out = append(out, el)
			continue
		}
		if ok, _ := path.Match(sel.Pattern, el.ID); ok {
			out = append(out, el)
		}
	}
	return out
}

func (ix *Index) exact(name, scope string) []*circuit.Element {
	var out []*circuit.Element
	for _, el := range ix.byName[name] {
		if inScope(el, scope) {
			out = append(out, el)
		}
	}
	return out
}

// MatchPort resolves a port selector such as ".R1 > .pin1" or "R1.1" to a
// connectivity key.
func (ix *Index) MatchPort(raw, scope string) (string, bool) {
	normalized := strings.NewReplacer(" ", "", ">", ".").Replace(raw)
	normalized = strings.TrimPrefix(normalized, ".")
	normalized = strings.ReplaceAll(normalized, "..", ".")
	target, pin, ok := strings.Cut(normalized, ".")
	if !ok {
		return "", false
	}
	for _, el := range ix.byName[target] {
		if !inScope(el, scope) {
			continue
		}
		spec := el.Component()
		pad, found := spec.Footprint.Pad(pin)
		if !found {
			if n, alias := spec.Definition.PinAliases[strings.ToLower(pin)]; alias {
				return circuit.PortKey(el.ID, n), true
			}
			continue
		}
		return circuit.PortKey(el.ID, pad.Number), true
	}
	return "", false
}

func inScope(el *circuit.Element, scope string) bool {
	return scope == "" || el.Parent == scope
}
