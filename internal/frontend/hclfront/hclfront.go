// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hclfront evaluates circuits written in HCL.
//
// Every block is an element: the block type is the tag, an optional label is
// the name and attributes are properties. Blocks nested in a board belong to
// it. Two block types are reserved:
//
//	locals { gain = 10 }         # values available as local.gain
//	include "parts/leds.hcl" {}  # evaluates another file in place
//
// An include may carry enabled = <bool> to make it conditional.
//
// Expressions can call a small set of pure functions plus import(path),
// which decodes a JSON file, and file(path), which returns a file's text.
// Both read only from the virtual file map of the run.
package hclfront

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/circuitgo/internal/builder"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/vfs"
	"github.com/zclconf/go-cty/cty"
)

const (
	blockLocals  = "locals"
	blockInclude = "include"
)

// Evaluator is the HCL front end.
type Evaluator struct{}

// New creates an HCL evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate runs entry and every file it includes.
func (e *Evaluator) Evaluate(ctx context.Context, files vfs.Map, entry string, b *builder.Builder) error {
	r := &run{
		files:   files,
		builder: b,
		parser:  hclparse.NewParser(),
		locals:  make(map[string]cty.Value),
	}
	ctxlog.FromContext(ctx).Debug("HCL evaluation started.", "entry", entry, "files", files.Len())
	return r.file(ctx, entry)
}

// run is the state of one evaluation.
type run struct {
	files   vfs.Map
	builder *builder.Builder
	parser  *hclparse.Parser
	stack   []string // Include chain, for cycle detection.
	locals  map[string]cty.Value
}

func (r *run) file(ctx context.Context, name string) error {
	name = vfs.Clean(name)
	for i, open := range r.stack {
		if open == name {
			chain := append(append([]string{}, r.stack[i:]...), name)
			return circuiterr.New(circuiterr.KindEvaluation, "include cycle: %s", strings.Join(chain, " -> "))
		}
	}
	src, ok := r.files.Read(name)
	if !ok {
		return circuiterr.New(circuiterr.KindEvaluation, "file %q not found", name)
	}

	f, diags := r.parser.ParseHCL([]byte(src), name)
	if diags.HasErrors() {
		return circuiterr.Wrap(circuiterr.KindEvaluation, diags, "syntax error in %s", name)
	}
	body, ok := f.Body.(*hclsyntax.Body)
	if !ok {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: unexpected body type %T", name, f.Body)
	}
	if attrs := sortedAttributes(body); len(attrs) > 0 {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: top-level attribute %q is not allowed; declare it in a locals block", position(attrs[0].SrcRange), attrs[0].Name)
	}

	r.stack = append(r.stack, name)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()
	return r.blocks(ctx, name, body.Blocks)
}

func (r *run) blocks(ctx context.Context, file string, blocks hclsyntax.Blocks) error {
	for _, blk := range blocks {
		if err := circuiterr.FromContext(ctx, "evaluation"); err != nil {
			return err
		}
		var err error
		switch blk.Type {
		case blockLocals:
			err = r.defineLocals(file, blk)
		case blockInclude:
			err = r.include(ctx, file, blk)
		default:
			err = r.element(ctx, file, blk)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) defineLocals(file string, blk *hclsyntax.Block) error {
	if len(blk.Labels) > 0 || len(blk.Body.Blocks) > 0 {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: locals takes no labels and no nested blocks", position(blk.TypeRange))
	}
	// Each local can refer to the ones defined before it.
	for _, attr := range sortedAttributes(blk.Body) {
		v, diags := attr.Expr.Value(r.evalContext(file))
		if diags.HasErrors() {
			return circuiterr.Wrap(circuiterr.KindEvaluation, diags, "evaluating local.%s", attr.Name)
		}
		r.locals[attr.Name] = v
	}
	return nil
}

type includeOptions struct {
	Enabled *bool `hcl:"enabled,optional"`
}

func (r *run) include(ctx context.Context, file string, blk *hclsyntax.Block) error {
	if len(blk.Labels) != 1 {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: include needs exactly one label, the path to include", position(blk.TypeRange))
	}
	var opts includeOptions
	if diags := gohcl.DecodeBody(blk.Body, r.evalContext(file), &opts); diags.HasErrors() {
		return circuiterr.Wrap(circuiterr.KindEvaluation, diags, "%s: include", position(blk.TypeRange))
	}
	target := vfs.Resolve(file, blk.Labels[0])
	if opts.Enabled != nil && !*opts.Enabled {
		ctxlog.FromContext(ctx).Debug("Include disabled.", "from", file, "path", target)
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Including file.", "from", file, "path", target)
	return r.file(ctx, target)
}

func (r *run) element(ctx context.Context, file string, blk *hclsyntax.Block) error {
	if len(blk.Labels) > 1 {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: %s takes at most one label, the element name", position(blk.TypeRange), blk.Type)
	}
	var name string
	if len(blk.Labels) == 1 {
		name = blk.Labels[0]
	}

	evalCtx := r.evalContext(file)
	props := make(map[string]cty.Value, len(blk.Body.Attributes))
	for _, attr := range sortedAttributes(blk.Body) {
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return circuiterr.Wrap(circuiterr.KindEvaluation, diags, "evaluating %s.%s", blk.Type, attr.Name)
		}
		props[attr.Name] = v
	}

	el, err := r.builder.AddElement(ctx, builder.Declaration{
		Tag:    blk.Type,
		Name:   name,
		Props:  props,
		Source: position(blk.TypeRange),
	})
	if err != nil {
		return err
	}
	if len(blk.Body.Blocks) == 0 {
		return nil
	}
	if err := r.builder.Enter(el); err != nil {
		return err
	}
	if err := r.blocks(ctx, file, blk.Body.Blocks); err != nil {
		return err
	}
	return r.builder.Leave()
}

func (r *run) evalContext(file string) *hcl.EvalContext {
	local := cty.EmptyObjectVal
	if len(r.locals) > 0 {
		snapshot := make(map[string]cty.Value, len(r.locals))
		for k, v := range r.locals {
			snapshot[k] = v
		}
		local = cty.ObjectVal(snapshot)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"local": local},
		Functions: functions(r.files, file),
	}
}

// sortedAttributes returns attributes in source order.
func sortedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs
}

func position(rng hcl.Range) string {
	return fmt.Sprintf("%s:%d,%d", rng.Filename, rng.Start.Line, rng.Start.Column)
}
