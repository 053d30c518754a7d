// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package components

import (
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface every group of component kinds implements to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Part is the typed, validated view of a component declaration.
type Part interface {
	// FootprintHint returns a footprint derived from the part's own fields, or
	// "" to fall back to the definition default.
	FootprintHint() string
}

// Definition describes one component kind.
type Definition struct {
	Tag              string         // Declaration tag, e.g. "resistor".
	FType            string         // Document type, e.g. "simple_resistor".
	DefaultFootprint string         // Used when the declaration names none.
	PinAliases       map[string]int // Extra port names, e.g. "anode" -> 1.
	NewPart          func() Part    // Returns a pointer to a zero part.
}

// Registry holds the component kinds known to a builder.
type Registry struct {
	defs map[string]*Definition
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a component kind. Registering a tag twice is a programmer
// error and panics.
func (r *Registry) Register(def *Definition) {
	if _, exists := r.defs[def.Tag]; exists {
		panic(fmt.Sprintf("component kind '%s' already registered", def.Tag))
	}
	if def.NewPart == nil {
		panic(fmt.Sprintf("component kind '%s' has no part constructor", def.Tag))
	}
	slog.Debug("Registering component kind.", "tag", def.Tag)
	r.defs[def.Tag] = def
}

// Lookup returns the definition registered under tag.
func (r *Registry) Lookup(tag string) (*Definition, bool) {
	def, ok := r.defs[tag]
	return def, ok
}

// Tags returns all registered tags in sorted order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.defs))
	for tag := range r.defs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// coreModules is the definitive list of component kinds compiled into the
// evaluator.
var coreModules = []Module{
	&Passives{},
	&Semiconductors{},
	&Connectors{},
}

// Core returns a registry populated with the built-in component kinds, plus
// any extra modules.
func Core(extra ...Module) *Registry {
	r := New()
	for _, mod := range coreModules {
		mod.Register(r)
	}
	for _, mod := range extra {
		mod.Register(r)
	}
	return r
}
