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
	"github.com/zclconf/go-cty/cty"
)

// RootBoardID is the ID of the board created for components declared outside
// any explicit board.
const RootBoardID = "root"

// Declaration is one element as written by the author.
type Declaration struct {
	Tag    string
	Name   string
	Props  map[string]cty.Value
	Source string // e.g. "main.hcl:4,3"
}

// Builder accumulates declarations into a circuit graph, validating each one
// as it is added.
type Builder struct {
	registry *components.Registry
	graph    *circuit.Graph
	open     []*circuit.Element
	counters map[string]int
	traces   []*circuit.Element
	root     *circuit.Element
	finished bool
}

// New creates a builder for the kinds in reg.
func New(reg *components.Registry) *Builder {
	return &Builder{
		registry: reg,
		graph:    circuit.NewGraph(),
		counters: make(map[string]int),
	}
}

// AddElement validates a declaration and adds it under the board currently
// entered. Components declared outside any board are owned by an implicit,
// auto-sized root board; traces declared outside any board join the board of
// their endpoints in Finish.
func (b *Builder) AddElement(ctx context.Context, decl Declaration) (*circuit.Element, error) {
	if b.finished {
		return nil, fmt.Errorf("builder is finished; %s %q cannot be added", decl.Tag, decl.Name)
	}
	logger := ctxlog.FromContext(ctx)

	tag := NormalizeName(decl.Tag)
	props := make(map[string]cty.Value, len(decl.Props))
	for k, v := range decl.Props {
		props[NormalizeName(k)] = v
	}
	name := decl.Name
	if v, ok := props["name"]; ok {
		if name == "" {
			n, err := stringProp(tag, name, "name", v)
			if err != nil {
				return nil, err
			}
			name = n
		}
		delete(props, "name")
	}

	el := &circuit.Element{
		Name:   name,
		Tag:    tag,
		Props:  props,
		Source: decl.Source,
	}

	var err error
	switch tag {
	case "board":
		err = b.addBoard(el)
	case "net":
		err = b.addNet(el)
	case "trace":
		err = b.addTrace(el)
	default:
		err = b.addComponent(el)
	}
	if err != nil {
		logger.Debug("Declaration rejected.", "tag", tag, "name", name, "source", decl.Source, "error", err)
		return nil, err
	}

	el.ID = b.assignID(tag, name)
	if err := b.graph.Add(el); err != nil {
		return nil, circuiterr.Wrap(circuiterr.KindValidation, err, "cannot add %s %q", tag, name)
	}
	if el.Kind == circuit.KindTrace {
		b.traces = append(b.traces, el)
	}
	logger.Debug("Element added.", "id", el.ID, "tag", tag, "parent", el.Parent)
	return el, nil
}

// Enter makes el the container for subsequent declarations. Only boards can
// contain other elements.
func (b *Builder) Enter(el *circuit.Element) error {
	if el == nil || el.Kind != circuit.KindBoard {
		return circuiterr.New(circuiterr.KindValidation, "only boards can contain other elements")
	}
	b.open = append(b.open, el)
	return nil
}

// Leave closes the most recently entered board.
func (b *Builder) Leave() error {
	if len(b.open) == 0 {
		return fmt.Errorf("leave called without a matching enter")
	}
	b.open = b.open[:len(b.open)-1]
	return nil
}

// Finish resolves trace endpoints, builds connectivity and returns the graph.
// The builder cannot be used afterwards.
func (b *Builder) Finish(ctx context.Context) (*circuit.Graph, error) {
	if len(b.open) > 0 {
		return nil, fmt.Errorf("board %q was entered but never left", b.open[len(b.open)-1].ID)
	}
	b.finished = true

	for _, el := range b.graph.OfKind(circuit.KindNet) {
		b.graph.Connectivity.AddNode(circuit.NetKey(el.ID))
	}
	for _, el := range b.traces {
		spec := el.Trace()
		from, err := b.resolvePort(ctx, el, "from", spec.From.Raw)
		if err != nil {
			return nil, err
		}
		to, err := b.resolvePort(ctx, el, "to", spec.To.Raw)
		if err != nil {
			return nil, err
		}
		spec.From, spec.To = from, to
		if err := b.adoptTrace(el); err != nil {
			return nil, err
		}
		if err := b.graph.Connectivity.Connect(from.Key(), to.Key()); err != nil {
			return nil, circuiterr.Wrap(circuiterr.KindValidation, err, "trace %q connects a port to itself", el.DisplayName())
		}
	}

	ctxlog.FromContext(ctx).Debug("Circuit graph finished.",
		"elements", b.graph.Len(),
		"traces", len(b.traces),
		"connectivity_nodes", b.graph.Connectivity.Len(),
	)
	return b.graph, nil
}

// current returns the board new elements belong to, creating the implicit
// root board when nothing is open.
func (b *Builder) current() (*circuit.Element, error) {
	if len(b.open) > 0 {
		return b.open[len(b.open)-1], nil
	}
	if b.root != nil {
		return b.root, nil
	}
	root := &circuit.Element{
		ID:    b.assignID("board", RootBoardID),
		Tag:   "board",
		Kind:  circuit.KindBoard,
		Props: map[string]cty.Value{},
		Spec:  &circuit.BoardSpec{AutoSize: true, Margin: defaultBoardMargin, Implicit: true},
	}
	if err := b.graph.Add(root); err != nil {
		return nil, err
	}
	b.root = root
	return root, nil
}

// assignID uses the declared name when it is free, otherwise a per-tag
// counter.
func (b *Builder) assignID(tag, name string) string {
	if name != "" {
		if _, taken := b.graph.Get(name); !taken {
			return name
		}
	}
	for {
		b.counters[tag]++
		id := fmt.Sprintf("%s_%d", tag, b.counters[tag])
		if _, taken := b.graph.Get(id); !taken {
			return id
		}
	}
}

// NormalizeName converts camelCase and kebab-case property names to
// snake_case: "pcbX" becomes "pcb_x", "maxVoltageRating" becomes
// "max_voltage_rating".
func NormalizeName(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '-':
			sb.WriteByte('_')
		case r >= 'A' && r <= 'Z':
			prevLower := i > 0 && (isLower(runes[i-1]) || isDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && isUpper(runes[i-1]) && isLower(runes[i+1])
			if prevLower || nextLower {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
