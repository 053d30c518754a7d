// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package tsxfront

import (
	"context"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/vk/circuitgo/internal/builder"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/zclconf/go-cty/cty"
)

// render declares whatever n evaluates to: a JSX element, or a binding that
// holds one.
func (r *run) render(ctx context.Context, s *scope, n *sitter.Node) error {
	n = unwrap(n)
	switch n.Type() {
	case "jsx_element", "jsx_self_closing_element":
		return r.element(ctx, s, n)
	case "arrow_function", "function_expression", "function":
		return r.renderBinding(ctx, binding{node: n, scope: s})
	case "identifier":
		name := s.mod.text(n)
		b, ok := s.lookup(name)
		if !ok {
			return notDefined(s.mod, n, name)
		}
		if b.node == nil {
			if b.value.IsNull() {
				return nil
			}
			return circuiterr.New(circuiterr.KindEvaluation, "%s: %s is not a circuit element", s.mod.pos(n), name)
		}
		return r.renderBinding(ctx, b)
	case "null", "undefined", "false":
		return nil
	default:
		return unsupported(s.mod, n, "circuit expression")
	}
}

func (r *run) renderBinding(ctx context.Context, b binding) error {
	if b.isJSX() {
		return r.element(ctx, b.scope, b.node)
	}
	return r.call(ctx, b)
}

// call expands a component function: it runs the body's declarations in a
// fresh scope and renders what it returns.
func (r *run) call(ctx context.Context, b binding) error {
	r.depth++
	defer func() { r.depth-- }()
	m := b.scope.mod
	if r.depth > maxDepth {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: components nest deeper than %d levels", m.pos(b.node), maxDepth)
	}

	s := b.scope.child()
	body := b.node.ChildByFieldName("body")
	if body == nil {
		return unsupported(m, b.node, "function without a body")
	}
	if body.Type() != "statement_block" {
		return r.render(ctx, s, body)
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		switch stmt.Type() {
		case "comment", "empty_statement":
		case "lexical_declaration", "variable_declaration", "function_declaration":
			if _, err := r.declare(s, stmt); err != nil {
				return err
			}
		case "expression_statement":
			if err := r.expressionStatement(ctx, s, stmt.NamedChild(0)); err != nil {
				return err
			}
		case "return_statement":
			if stmt.NamedChildCount() == 0 {
				return nil
			}
			return r.render(ctx, s, stmt.NamedChild(0))
		default:
			return unsupported(m, stmt, "statement in component body")
		}
	}
	return nil
}

// element declares one JSX element and, if it has element children, the
// children inside it.
func (r *run) element(ctx context.Context, s *scope, n *sitter.Node) error {
	if err := circuiterr.FromContext(ctx, "evaluation"); err != nil {
		return err
	}
	m := s.mod

	open := n
	var children []*sitter.Node
	if n.Type() == "jsx_element" {
		open = n.ChildByFieldName("open_tag")
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "jsx_opening_element", "jsx_closing_element", "jsx_text", "html_character_reference":
			default:
				children = append(children, c)
			}
		}
	}

	nameNode := open.ChildByFieldName("name")
	if nameNode == nil {
		// Fragment: children belong to the enclosing element.
		return r.children(ctx, s, children)
	}
	tag := m.text(nameNode)
	if first, _ := utf8.DecodeRuneInString(tag); unicode.IsUpper(first) {
		return r.component(ctx, s, open, tag, len(children) > 0)
	}

	props, err := r.attributes(s, open)
	if err != nil {
		return err
	}
	el, err := r.builder.AddElement(ctx, builder.Declaration{
		Tag:    tag,
		Props:  props,
		Source: m.pos(n),
	})
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}
	if err := r.builder.Enter(el); err != nil {
		return err
	}
	if err := r.children(ctx, s, children); err != nil {
		return err
	}
	return r.builder.Leave()
}

func (r *run) children(ctx context.Context, s *scope, children []*sitter.Node) error {
	for _, c := range children {
		if c.Type() == "jsx_expression" {
			if c.NamedChildCount() == 0 || c.NamedChild(0).Type() == "comment" {
				continue
			}
			c = c.NamedChild(0)
		}
		if err := r.render(ctx, s, c); err != nil {
			return err
		}
	}
	return nil
}

// component expands <Name /> where Name is a component or JSX binding.
// Components take no props.
func (r *run) component(ctx context.Context, s *scope, open *sitter.Node, tag string, hasChildren bool) error {
	m := s.mod
	b, ok := s.lookup(tag)
	if !ok {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: <%s> is not defined", m.pos(open), tag)
	}
	if !b.isComponent() && !b.isJSX() {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: <%s> is not a component", m.pos(open), tag)
	}
	for i := 0; i < int(open.NamedChildCount()); i++ {
		if t := open.NamedChild(i).Type(); t == "jsx_attribute" || t == "jsx_expression" {
			return circuiterr.New(circuiterr.KindEvaluation, "%s: <%s> does not take props", m.pos(open), tag)
		}
	}
	if hasChildren {
		return circuiterr.New(circuiterr.KindEvaluation, "%s: <%s> does not take children", m.pos(open), tag)
	}
	return r.renderBinding(ctx, b)
}

// attributes evaluates the props of an opening or self-closing element.
func (r *run) attributes(s *scope, open *sitter.Node) (map[string]cty.Value, error) {
	m := s.mod
	props := make(map[string]cty.Value)
	for i := 0; i < int(open.NamedChildCount()); i++ {
		attr := open.NamedChild(i)
		switch attr.Type() {
		case "jsx_attribute":
			name := m.text(attr.NamedChild(0))
			if name == "key" {
				continue
			}
			v := cty.True
			if attr.NamedChildCount() > 1 {
				var err error
				if v, err = r.attributeValue(s, attr.NamedChild(1)); err != nil {
					return nil, err
				}
			}
			props[name] = v
		case "jsx_expression":
			// {...spread}
			inner := attr.NamedChild(0)
			if inner == nil || inner.Type() != "spread_element" {
				return nil, unsupported(m, attr, "attribute expression")
			}
			v, err := r.value(s, inner.NamedChild(0))
			if err != nil {
				return nil, err
			}
			if !v.Type().IsObjectType() && !v.Type().IsMapType() {
				return nil, circuiterr.New(circuiterr.KindEvaluation, "%s: only objects can be spread into props", m.pos(attr))
			}
			for it := v.ElementIterator(); it.Next(); {
				k, ev := it.Element()
				props[k.AsString()] = ev
			}
		}
	}
	return props, nil
}

func (r *run) attributeValue(s *scope, n *sitter.Node) (cty.Value, error) {
	switch n.Type() {
	case "string":
		return cty.StringVal(unquote(s.mod.text(n))), nil
	case "jsx_expression":
		if n.NamedChildCount() == 0 {
			return cty.NilVal, circuiterr.New(circuiterr.KindEvaluation, "%s: empty attribute expression", s.mod.pos(n))
		}
		return r.value(s, n.NamedChild(0))
	default:
		return cty.NilVal, unsupported(s.mod, n, "attribute value")
	}
}
