// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package overlay

import (
	"context"
	"fmt"

	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/manualedits"
)

// Binding attaches an edit set to the part of the graph it may touch.
type Binding struct {
	Scope  string // Board ID, or "" for the whole graph.
	Edits  *manualedits.Set
	Source string // For messages: the board name or "host".
}

// Bindings collects the edit sets declared on boards, in declaration order,
// followed by the host-level sets which apply to the whole graph.
func Bindings(graph *circuit.Graph, host ...*manualedits.Set) []Binding {
	var out []Binding
	for _, el := range graph.OfKind(circuit.KindBoard) {
		if edits := el.Board().Edits; !edits.IsEmpty() {
			out = append(out, Binding{Scope: el.ID, Edits: edits, Source: el.DisplayName()})
		}
	}
	for _, edits := range host {
		if !edits.IsEmpty() {
			out = append(out, Binding{Edits: edits, Source: "host"})
		}
	}
	return out
}

// Layout is the automatic, pre-edit geometry edits are resolved against.
type Layout interface {
	// Center returns the automatic center of an element.
	Center(id string) (circuit.Point, bool)
	// GroupCenter returns the automatic center of the group containing id.
	GroupCenter(id string) (circuit.Point, bool)
}

// Options controls how strictly selectors must match.
type Options struct {
	// Strict turns unmatched or ambiguous selectors into errors instead of
	// skipping them.
	Strict bool
}

// Move is a resolved placement: the element and its final center.
type Move struct {
	ElementID string
	Center    circuit.Point
	Selector  string
}

// Hint is a resolved trace hint: waypoints for traces leaving a port.
type Hint struct {
	PortKey   string
	Waypoints []circuit.Point
}

// Result is the outcome of applying one binding.
type Result struct {
	Moves     []Move
	Hints     []Hint
	Applied   int
	Unmatched []string
}

// Merge appends other to r.
func (r *Result) Merge(other Result) {
	r.Moves = append(r.Moves, other.Moves...)
	r.Hints = append(r.Hints, other.Hints...)
	r.Applied += other.Applied
	r.Unmatched = append(r.Unmatched, other.Unmatched...)
}

// Apply resolves a binding against the automatic layout. It never reads
// edited geometry, so applying the same edits again yields the same moves.
// Placements come first, then replayed edit events; a later move of the same
// element wins.
func Apply(ctx context.Context, ix *Index, auto Layout, b Binding, opts Options) (Result, error) {
	logger := ctxlog.FromContext(ctx).With("edits", b.Source)
	var res Result
	if b.Edits.IsEmpty() {
		return res, nil
	}

	for _, p := range b.Edits.Placements {
		sel := ParseSelector(p.Selector)
		matches := ix.Match(sel, b.Scope)
		if len(matches) == 0 {
			if opts.Strict {
				return Result{}, mismatch(p.Selector, b.Source, "matched no component")
			}
			logger.Debug("Placement selector matched nothing; ignoring.", "selector", p.Selector)
			res.Unmatched = append(res.Unmatched, p.Selector)
			continue
		}
		if len(matches) > 1 && (!sel.Glob || len(ix.exact(sel.Pattern, b.Scope)) > 0) {
			if opts.Strict {
				return Result{}, mismatch(p.Selector, b.Source, fmt.Sprintf("matched %d components", len(matches)))
			}
			logger.Debug("Placement selector is ambiguous; using first match.", "selector", p.Selector, "matches", len(matches))
			matches = matches[:1]
		}
		for _, el := range matches {
			target, err := resolveTarget(auto, el.ID, p.Center, p.RelativeTo)
			if err != nil {
				return Result{}, err
			}
			res.Moves = append(res.Moves, Move{ElementID: el.ID, Center: target, Selector: p.Selector})
			res.Applied++
		}
	}

	for _, ev := range b.Edits.Events {
		if !ev.Replayable() {
			continue
		}
		matches := ix.Match(Selector{Raw: ev.PcbComponentID, Pattern: ev.PcbComponentID}, b.Scope)
		if len(matches) == 0 {
			if opts.Strict {
				return Result{}, mismatch(ev.PcbComponentID, b.Source, "edit event targets no component")
			}
			res.Unmatched = append(res.Unmatched, ev.PcbComponentID)
			continue
		}
		center := circuit.Point{X: ev.NewCenter.X, Y: ev.NewCenter.Y}
		res.Moves = append(res.Moves, Move{ElementID: matches[0].ID, Center: center, Selector: ev.PcbComponentID})
		res.Applied++
	}

	for _, h := range b.Edits.TraceHints {
		key, ok := ix.MatchPort(h.PcbPortSelector, b.Scope)
		if !ok {
			if opts.Strict {
				return Result{}, mismatch(h.PcbPortSelector, b.Source, "trace hint targets no port")
			}
			res.Unmatched = append(res.Unmatched, h.PcbPortSelector)
			continue
		}
		origin, _ := groupCenterOfPort(auto, key)
		hint := Hint{PortKey: key}
		for _, off := range h.Offsets {
			hint.Waypoints = append(hint.Waypoints, origin.Add(circuit.Point{X: off.X, Y: off.Y}))
		}
		res.Hints = append(res.Hints, hint)
	}

	logger.Debug("Manual edits resolved.", "applied", res.Applied, "unmatched", len(res.Unmatched), "hints", len(res.Hints))
	return res, nil
}

func resolveTarget(auto Layout, id string, center manualedits.Point, relativeTo string) (circuit.Point, error) {
	p := circuit.Point{X: center.X, Y: center.Y}
	switch relativeTo {
	case manualedits.RelativeToAbsolute:
		return p, nil
	case manualedits.RelativeToGroupCenter, "":
		origin, ok := auto.GroupCenter(id)
		if !ok {
			return circuit.Point{}, fmt.Errorf("no automatic group center for %q", id)
		}
		return origin.Add(p), nil
	default:
		return circuit.Point{}, &circuiterr.Error{
			Kind:     circuiterr.KindValidation,
			Message:  fmt.Sprintf("unsupported relative_to %q", relativeTo),
			Element:  id,
			Property: "relative_to",
		}
	}
}

// groupCenterOfPort finds the group center of the component owning a port
// key of the form "<component>.<pad>".
func groupCenterOfPort(auto Layout, key string) (circuit.Point, bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return auto.GroupCenter(key[:i])
		}
	}
	return circuit.Point{}, false
}

func mismatch(selector, source, reason string) error {
	return &circuiterr.Error{
		Kind:    circuiterr.KindOverlayMismatch,
		Message: fmt.Sprintf("selector %q in %s edits %s", selector, source, reason),
		Element: selector,
	}
}
